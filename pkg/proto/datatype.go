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
	"fmt"
	"strings"
)

type Datatype uint32

const (
	TypeString = Datatype(1)
	TypeChar   = Datatype(2)
	TypeUChar  = Datatype(3)
	TypeShort  = Datatype(4)
	TypeUShort = Datatype(5)
	TypeBool   = Datatype(6)
	TypeLong   = Datatype(7)
	TypeULong  = Datatype(8)
	TypeFloat  = Datatype(9)
	TypeDouble = Datatype(10)
	TypeHex    = Datatype(11)
	TypeInt64  = Datatype(12)
	TypeUInt64 = Datatype(13)
)

var datatypeNames = map[Datatype]string{
	TypeString: "string",
	TypeChar:   "char",
	TypeUChar:  "uchar",
	TypeShort:  "short",
	TypeUShort: "ushort",
	TypeBool:   "bool",
	TypeLong:   "long",
	TypeULong:  "ulong",
	TypeFloat:  "float",
	TypeDouble: "double",
	TypeHex:    "hex",
	TypeInt64:  "int64",
	TypeUInt64: "uint64",
}

func (d Datatype) String() string {
	if name, ok := datatypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("datatype(%d)", uint32(d))
}

func (d Datatype) IsValid() bool {
	_, ok := datatypeNames[d]
	return ok
}

// IsNumeric reports whether values of d can be compared against a
// value-change threshold.
func (d Datatype) IsNumeric() bool {
	switch d {
	case TypeString, TypeBool, TypeChar, TypeUChar:
		return false
	}
	return d.IsValid()
}

// isLong reports whether d has the platform "long" width, which depends
// on the 64-bit long negotiation.
func (d Datatype) isLong() bool {
	return d == TypeLong || d == TypeULong || d == TypeHex
}

// ParseDatatype accepts the record-database datatype names, case-insensitive.
func ParseDatatype(name string) (Datatype, error) {
	lname := strings.ToLower(name)
	for d, n := range datatypeNames {
		if n == lname {
			return d, nil
		}
	}
	return 0, Errorf(StatusIllegalArgument, "datatype name '%s' does not correspond to a valid datatype", name)
}
