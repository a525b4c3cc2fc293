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

// Codec converts field values to and from one payload format.
type Codec interface {
	Format() DataFormat

	// Encode writes v into dst. A *ShortBufferError carries the size dst
	// must have for the call to succeed.
	Encode(dst []byte, v *Value) (int, error)

	// Decode parses a value of the given datatype and dimensions.
	Decode(src []byte, dt Datatype, dims []int) (*Value, error)
}

type CodecOptions struct {
	// Long64 selects 8-byte long, ulong and hex elements in the binary
	// formats.
	Long64 bool

	// Precision is the number of significant digits for float and
	// double tokens. Zero selects the shortest exact representation.
	Precision int
}

func NewCodec(f DataFormat, opts CodecOptions) (Codec, error) {
	switch f {
	case FormatToken:
		return &tokenCodec{opts: opts}, nil
	case FormatRaw:
		return &rawCodec{opts: opts}, nil
	case FormatPortable:
		return &portableCodec{opts: opts}, nil
	}
	return nil, Errorf(StatusUnsupported, "unsupported data format %d", uint32(f))
}

func checkEncodable(v *Value) error {
	if v == nil {
		return Errorf(StatusIllegalArgument, "nil value")
	}
	return v.Validate()
}

func fitsLong32(x int64) bool {
	return x >= math.MinInt32 && x <= math.MaxInt32
}

func fitsULong32(x uint64) bool {
	return x <= math.MaxUint32
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
