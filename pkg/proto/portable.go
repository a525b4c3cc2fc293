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
	"math"
)

// portableCodec is an XDR style encoding: big-endian, every element
// padded to a multiple of four bytes, strings length-prefixed.
type portableCodec struct {
	opts CodecOptions
}

func (c *portableCodec) Format() DataFormat {
	return FormatPortable
}

func (c *portableCodec) longSize() int {
	if c.opts.Long64 {
		return 8
	}
	return 4
}

func (c *portableCodec) encodedSize(v *Value) int {
	switch d := v.Data.(type) {
	case []string:
		n := 0
		for _, s := range d {
			n += 4 + pad4(len(s))
		}
		return n
	case []int64:
		if v.Type == TypeLong {
			return c.longSize() * len(d)
		}
		return 8 * len(d)
	case []uint64:
		if v.Type == TypeUInt64 {
			return 8 * len(d)
		}
		return c.longSize() * len(d)
	case []float64:
		return 8 * len(d)
	}
	return 4 * v.Len()
}

func (c *portableCodec) Encode(dst []byte, v *Value) (int, error) {
	if err := checkEncodable(v); err != nil {
		return 0, err
	}
	need := c.encodedSize(v)
	if len(dst) < need {
		return 0, &ShortBufferError{Need: need}
	}
	be := EncByteOrder
	off := 0
	put32 := func(x uint32) {
		be.PutUint32(dst[off:], x)
		off += 4
	}
	put64 := func(x uint64) {
		be.PutUint64(dst[off:], x)
		off += 8
	}
	switch d := v.Data.(type) {
	case []string:
		for _, s := range d {
			put32(uint32(len(s)))
			n := copy(dst[off:], s)
			for j := n; j < pad4(n); j++ {
				dst[off+j] = 0
			}
			off += pad4(n)
		}
	case []int8:
		for _, x := range d {
			put32(uint32(int32(x)))
		}
	case []uint8:
		for _, x := range d {
			put32(uint32(x))
		}
	case []int16:
		for _, x := range d {
			put32(uint32(int32(x)))
		}
	case []uint16:
		for _, x := range d {
			put32(uint32(x))
		}
	case []bool:
		for _, x := range d {
			if x {
				put32(1)
			} else {
				put32(0)
			}
		}
	case []int64:
		for i, x := range d {
			if v.Type == TypeLong && !c.opts.Long64 {
				if !fitsLong32(x) {
					return 0, Errorf(StatusIllegalArgument, "value %d of element %d does not fit in a 32-bit long", x, i)
				}
				put32(uint32(int32(x)))
			} else {
				put64(uint64(x))
			}
		}
	case []uint64:
		for i, x := range d {
			if v.Type != TypeUInt64 && !c.opts.Long64 {
				if !fitsULong32(x) {
					return 0, Errorf(StatusIllegalArgument, "value %d of element %d does not fit in a 32-bit long", x, i)
				}
				put32(uint32(x))
			} else {
				put64(x)
			}
		}
	case []float32:
		for _, x := range d {
			put32(math.Float32bits(x))
		}
	case []float64:
		for _, x := range d {
			put64(math.Float64bits(x))
		}
	}
	return off, nil
}

func (c *portableCodec) Decode(src []byte, dt Datatype, dims []int) (*Value, error) {
	v, err := NewValue(dt, dims)
	if err != nil {
		return nil, err
	}
	be := EncByteOrder
	off := 0
	short := func(want int) error {
		return Errorf(StatusUnparseableString, "portable %s payload is %d bytes, needed %d", dt, len(src), off+want)
	}
	get32 := func() (uint32, error) {
		if off+4 > len(src) {
			return 0, short(4)
		}
		x := be.Uint32(src[off:])
		off += 4
		return x, nil
	}
	get64 := func() (uint64, error) {
		if off+8 > len(src) {
			return 0, short(8)
		}
		x := be.Uint64(src[off:])
		off += 8
		return x, nil
	}
	n := v.Len()
	for i := 0; i < n; i++ {
		switch d := v.Data.(type) {
		case []string:
			l, err := get32()
			if err != nil {
				return nil, err
			}
			if int(l) >= v.MaxStringLen() {
				return nil, Errorf(StatusIllegalArgument, "string element %d is %d bytes, maximum is %d", i, l, v.MaxStringLen()-1)
			}
			if off+pad4(int(l)) > len(src) {
				return nil, short(pad4(int(l)))
			}
			d[i] = string(src[off : off+int(l)])
			off += pad4(int(l))
		case []int8:
			x, err := get32()
			if err != nil {
				return nil, err
			}
			d[i] = int8(int32(x))
		case []uint8:
			x, err := get32()
			if err != nil {
				return nil, err
			}
			d[i] = uint8(x)
		case []int16:
			x, err := get32()
			if err != nil {
				return nil, err
			}
			d[i] = int16(int32(x))
		case []uint16:
			x, err := get32()
			if err != nil {
				return nil, err
			}
			d[i] = uint16(x)
		case []bool:
			x, err := get32()
			if err != nil {
				return nil, err
			}
			d[i] = x != 0
		case []int64:
			if dt == TypeLong && !c.opts.Long64 {
				x, err := get32()
				if err != nil {
					return nil, err
				}
				d[i] = int64(int32(x))
			} else {
				x, err := get64()
				if err != nil {
					return nil, err
				}
				d[i] = int64(x)
			}
		case []uint64:
			if dt != TypeUInt64 && !c.opts.Long64 {
				x, err := get32()
				if err != nil {
					return nil, err
				}
				d[i] = uint64(x)
			} else {
				x, err := get64()
				if err != nil {
					return nil, err
				}
				d[i] = x
			}
		case []float32:
			x, err := get32()
			if err != nil {
				return nil, err
			}
			d[i] = math.Float32frombits(x)
		case []float64:
			x, err := get64()
			if err != nil {
				return nil, err
			}
			d[i] = math.Float64frombits(x)
		}
	}
	return v, nil
}
