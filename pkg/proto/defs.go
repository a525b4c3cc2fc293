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
	"encoding/binary"
	"fmt"
)

type (
	MessageType     uint32
	DataFormat      uint32
	OptionNumber    uint32
	AttributeNumber uint32
	CallbackClass   uint32
)

type ProtocolError struct {
	what string
}

const (
	MagicValue uint32 = 0x4d584e31

	LegacyHeaderSize = 20
	HeaderSize       = 28
	kMaxHeaderSize   = 256

	ResponseBit uint32 = 0x80000000
	CallbackBit uint32 = 0x80000000

	// Clients at or above this version understand the data type and
	// message id header words.
	MessageIDVersion uint32 = 2000000
	CurrentVersion   uint32 = 2001000

	// NullHandle is never issued by a handle table.
	NullHandle int32 = 0
)

const (
	MsgGetByName        = MessageType(0x1001)
	MsgPutByName        = MessageType(0x1002)
	MsgGetByHandle      = MessageType(0x1003)
	MsgPutByHandle      = MessageType(0x1004)
	MsgGetNetworkHandle = MessageType(0x1005)
	MsgGetFieldType     = MessageType(0x1006)
	MsgSetClientInfo    = MessageType(0x1007)
	MsgGetOption        = MessageType(0x1008)
	MsgSetOption        = MessageType(0x1009)
	MsgGetAttribute     = MessageType(0x100A)
	MsgSetAttribute     = MessageType(0x100B)
	MsgAddCallback      = MessageType(0x100C)
	MsgDeleteCallback   = MessageType(0x100D)
	MsgCallback         = MessageType(0x100E)

	MsgUnexpectedError = MessageType(0x80000001)
)

const (
	FormatToken    = DataFormat(1)
	FormatRaw      = DataFormat(2)
	FormatPortable = DataFormat(3)
)

const (
	OptionDataFormat        = OptionNumber(1)
	OptionNativeDataFormat  = OptionNumber(2)
	OptionLong64            = OptionNumber(3)
	OptionWordSize          = OptionNumber(4)
	OptionClientVersion     = OptionNumber(5)
	OptionClientVersionTime = OptionNumber(6)
)

const (
	AttrValueChangeThreshold = AttributeNumber(1)
	AttrPollable             = AttributeNumber(2)
	AttrReadOnly             = AttributeNumber(3)
	AttrNoAccess             = AttributeNumber(4)
)

const (
	CallbackValueChanged = CallbackClass(1)
)

var (
	EncByteOrder = binary.BigEndian
)

var (
	msgTypeNameMap = map[MessageType]string{
		MsgGetByName:        "GetByName",
		MsgPutByName:        "PutByName",
		MsgGetByHandle:      "GetByHandle",
		MsgPutByHandle:      "PutByHandle",
		MsgGetNetworkHandle: "GetNetworkHandle",
		MsgGetFieldType:     "GetFieldType",
		MsgSetClientInfo:    "SetClientInfo",
		MsgGetOption:        "GetOption",
		MsgSetOption:        "SetOption",
		MsgGetAttribute:     "GetAttribute",
		MsgSetAttribute:     "SetAttribute",
		MsgAddCallback:      "AddCallback",
		MsgDeleteCallback:   "DeleteCallback",
		MsgCallback:         "Callback",
		MsgUnexpectedError:  "UnexpectedError",
	}

	formatNameMap = map[DataFormat]string{
		FormatToken:    "token",
		FormatRaw:      "raw",
		FormatPortable: "portable",
	}
)

// Requests lists the request message types a server dispatches, in
// the order statistics are reported.
var Requests = []MessageType{
	MsgGetByName, MsgPutByName, MsgGetByHandle, MsgPutByHandle,
	MsgGetNetworkHandle, MsgGetFieldType, MsgSetClientInfo,
	MsgGetOption, MsgSetOption, MsgGetAttribute, MsgSetAttribute,
	MsgAddCallback, MsgDeleteCallback,
}

var (
	ErrBadMagic        = &ProtocolError{"wrong magic number"}
	ErrBadHeaderLength = &ProtocolError{"invalid header length"}
	ErrShortHeader     = &ProtocolError{"short header"}
	ErrShortBody       = &ProtocolError{"short message body"}
)

func (e *ProtocolError) Error() string {
	return "ProtocolError: " + e.what
}

func (t MessageType) String() string {
	if name, ok := msgTypeNameMap[t]; ok {
		return name
	}
	if t.IsResponse() {
		if name, ok := msgTypeNameMap[t&^MessageType(ResponseBit)]; ok {
			return name + "Response"
		}
	}
	return fmt.Sprintf("MessageType(%#x)", uint32(t))
}

func (t MessageType) IsResponse() bool {
	return uint32(t)&ResponseBit != 0
}

func (t MessageType) Response() MessageType {
	return t | MessageType(ResponseBit)
}

func (t MessageType) Request() MessageType {
	return t &^ MessageType(ResponseBit)
}

func (f DataFormat) String() string {
	if name, ok := formatNameMap[f]; ok {
		return name
	}
	return fmt.Sprintf("DataFormat(%d)", uint32(f))
}

func (f DataFormat) IsValid() bool {
	_, ok := formatNameMap[f]
	return ok
}

func ParseDataFormat(s string) (DataFormat, error) {
	for f, name := range formatNameMap {
		if name == s {
			return f, nil
		}
	}
	switch s {
	case "ascii", "text":
		return FormatToken, nil
	case "xdr":
		return FormatPortable, nil
	}
	return 0, fmt.Errorf("unknown data format %q", s)
}

// VersionString renders an encoded major*1000000+minor*1000+patch version.
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v/1000000, (v/1000)%1000, v%1000)
}
