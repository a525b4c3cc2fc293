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
	"strings"
)

// MaxNameLength bounds "record.field" names on the wire.
const MaxNameLength = 128

var statusOnlyBody = []byte{0}

// StatusOnlyEncoder writes the single NUL byte of a status-only reply.
func StatusOnlyEncoder() Encoder {
	return BytesEncoder(statusOnlyBody)
}

// NameEncoder writes name NUL terminated and zero padded to 4 bytes.
func NameEncoder(name string) Encoder {
	return func(dst []byte) (int, error) {
		need := pad4(len(name) + 1)
		if len(dst) < need {
			return 0, &ShortBufferError{Need: need}
		}
		n := copy(dst, name)
		for ; n < need; n++ {
			dst[n] = 0
		}
		return need, nil
	}
}

// DoubleEncoder writes x as a big-endian IEEE double.
func DoubleEncoder(x float64) Encoder {
	return func(dst []byte) (int, error) {
		if len(dst) < 8 {
			return 0, &ShortBufferError{Need: 8}
		}
		EncByteOrder.PutUint64(dst, math.Float64bits(x))
		return 8, nil
	}
}

// ValueEncoder encodes v with c.
func ValueEncoder(c Codec, v *Value) Encoder {
	return func(dst []byte) (int, error) {
		return c.Encode(dst, v)
	}
}

// DecodeName splits a by-name body into the name and what follows it.
// Binary bodies terminate the name with a NUL and continue at the next
// 4-byte boundary. When text is set the name may also end at whitespace,
// which is left at the start of rest.
func DecodeName(body []byte, text bool) (name string, rest []byte, err error) {
	end := -1
	for i, c := range body {
		if c == 0 || (text && isSeparator(c)) {
			end = i
			break
		}
	}
	if end < 0 {
		if !text {
			return "", nil, Errorf(StatusIllegalArgument, "field name is not NUL terminated")
		}
		end = len(body)
	}
	if end == 0 {
		return "", nil, Errorf(StatusIllegalArgument, "empty field name")
	}
	if end > MaxNameLength {
		return "", nil, Errorf(StatusIllegalArgument, "field name of %d bytes is longer than %d", end, MaxNameLength)
	}
	name = string(body[:end])
	if end < len(body) && body[end] == 0 {
		next := pad4(end + 1)
		if next > len(body) {
			next = len(body)
		}
		rest = body[next:]
	} else {
		rest = body[end:]
	}
	return
}

// SplitRecordField splits "record.field".
func SplitRecordField(name string) (record string, field string, err error) {
	record, field, ok := strings.Cut(name, ".")
	if !ok || record == "" || field == "" {
		return "", "", Errorf(StatusIllegalArgument, "'%s' is not of the form record.field", name)
	}
	return record, field, nil
}

// Words decodes n big-endian 32-bit words from the front of body.
func Words(body []byte, n int) (words []uint32, rest []byte, err error) {
	if len(body) < 4*n {
		return nil, nil, Errorf(StatusIllegalArgument,
			"message body of %d bytes is too short for %d words", len(body), n)
	}
	words = make([]uint32, n)
	for i := range words {
		words[i] = EncByteOrder.Uint32(body[4*i:])
	}
	return words, body[4*n:], nil
}

// Double decodes a big-endian IEEE double from the front of body.
func Double(body []byte) (float64, error) {
	if len(body) < 8 {
		return 0, Errorf(StatusIllegalArgument, "message body of %d bytes is too short for a double", len(body))
	}
	return math.Float64frombits(EncByteOrder.Uint64(body)), nil
}

// ErrorMessage returns the text of an error reply body.
func ErrorMessage(body []byte) string {
	for i, c := range body {
		if c == 0 {
			return string(body[:i])
		}
	}
	return string(body)
}
