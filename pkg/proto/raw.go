//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package proto

import (
	"bytes"
	"encoding/binary"
	"math"
)

var nativeOrder = binary.NativeEndian

// Byte order codes reported by the native data format option.
const (
	ByteOrderBigEndian    uint32 = 1
	ByteOrderLittleEndian uint32 = 2
)

// NativeByteOrder returns the byte order code of raw payloads.
func NativeByteOrder() uint32 {
	var b [2]byte
	nativeOrder.PutUint16(b[:], 1)
	if b[0] == 1 {
		return ByteOrderLittleEndian
	}
	return ByteOrderBigEndian
}

// WordSize is the native word size in bits.
const WordSize = 32 << (^uint(0) >> 63)

// rawCodec copies elements at native width and byte order. Strings take
// their full maximum length, NUL padded.
type rawCodec struct {
	opts CodecOptions
}

func (c *rawCodec) Format() DataFormat {
	return FormatRaw
}

func (c *rawCodec) elementSize(dt Datatype, dims []int) int {
	switch dt {
	case TypeString:
		return dims[len(dims)-1]
	case TypeChar, TypeUChar:
		return 1
	case TypeShort, TypeUShort:
		return 2
	case TypeBool, TypeFloat:
		return 4
	case TypeLong, TypeULong, TypeHex:
		if c.opts.Long64 {
			return 8
		}
		return 4
	}
	return 8
}

func (c *rawCodec) Encode(dst []byte, v *Value) (int, error) {
	if err := checkEncodable(v); err != nil {
		return 0, err
	}
	width := c.elementSize(v.Type, v.Dims)
	need := width * v.Len()
	if len(dst) < need {
		return 0, &ShortBufferError{Need: need}
	}
	switch d := v.Data.(type) {
	case []string:
		for i, s := range d {
			elem := dst[i*width : (i+1)*width]
			n := copy(elem, s)
			for j := n; j < width; j++ {
				elem[j] = 0
			}
		}
	case []int8:
		for i, x := range d {
			dst[i] = byte(x)
		}
	case []uint8:
		copy(dst, d)
	case []int16:
		for i, x := range d {
			nativeOrder.PutUint16(dst[2*i:], uint16(x))
		}
	case []uint16:
		for i, x := range d {
			nativeOrder.PutUint16(dst[2*i:], x)
		}
	case []bool:
		for i, x := range d {
			var b uint32
			if x {
				b = 1
			}
			nativeOrder.PutUint32(dst[4*i:], b)
		}
	case []int64:
		for i, x := range d {
			if width == 4 {
				if !fitsLong32(x) {
					return 0, Errorf(StatusIllegalArgument, "value %d of element %d does not fit in a 32-bit long", x, i)
				}
				nativeOrder.PutUint32(dst[4*i:], uint32(int32(x)))
			} else {
				nativeOrder.PutUint64(dst[8*i:], uint64(x))
			}
		}
	case []uint64:
		for i, x := range d {
			if width == 4 {
				if !fitsULong32(x) {
					return 0, Errorf(StatusIllegalArgument, "value %d of element %d does not fit in a 32-bit long", x, i)
				}
				nativeOrder.PutUint32(dst[4*i:], uint32(x))
			} else {
				nativeOrder.PutUint64(dst[8*i:], x)
			}
		}
	case []float32:
		for i, x := range d {
			nativeOrder.PutUint32(dst[4*i:], math.Float32bits(x))
		}
	case []float64:
		for i, x := range d {
			nativeOrder.PutUint64(dst[8*i:], math.Float64bits(x))
		}
	}
	return need, nil
}

func (c *rawCodec) Decode(src []byte, dt Datatype, dims []int) (*Value, error) {
	v, err := NewValue(dt, dims)
	if err != nil {
		return nil, err
	}
	width := c.elementSize(dt, dims)
	need := width * v.Len()
	if len(src) < need {
		return nil, Errorf(StatusUnparseableString, "raw %s payload is %d bytes, expected %d", dt, len(src), need)
	}
	switch d := v.Data.(type) {
	case []string:
		for i := range d {
			elem := src[i*width : (i+1)*width]
			if n := bytes.IndexByte(elem, 0); n >= 0 {
				elem = elem[:n]
			} else {
				return nil, Errorf(StatusIllegalArgument, "string element %d is not NUL terminated", i)
			}
			d[i] = string(elem)
		}
	case []int8:
		for i := range d {
			d[i] = int8(src[i])
		}
	case []uint8:
		copy(d, src)
	case []int16:
		for i := range d {
			d[i] = int16(nativeOrder.Uint16(src[2*i:]))
		}
	case []uint16:
		for i := range d {
			d[i] = nativeOrder.Uint16(src[2*i:])
		}
	case []bool:
		for i := range d {
			d[i] = nativeOrder.Uint32(src[4*i:]) != 0
		}
	case []int64:
		for i := range d {
			if width == 4 {
				d[i] = int64(int32(nativeOrder.Uint32(src[4*i:])))
			} else {
				d[i] = int64(nativeOrder.Uint64(src[8*i:]))
			}
		}
	case []uint64:
		for i := range d {
			if width == 4 {
				d[i] = uint64(nativeOrder.Uint32(src[4*i:]))
			} else {
				d[i] = nativeOrder.Uint64(src[8*i:])
			}
		}
	case []float32:
		for i := range d {
			d[i] = math.Float32frombits(nativeOrder.Uint32(src[4*i:]))
		}
	case []float64:
		for i := range d {
			d[i] = math.Float64frombits(nativeOrder.Uint64(src[8*i:]))
		}
	}
	return v, nil
}
