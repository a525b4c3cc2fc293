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
	"io"
)

// Header is the fixed part of every frame. All words are big-endian.
//
//	  0  magic
//	  4  header length
//	  8  body length
//	 12  message type
//	 16  status
//	 20  data type    (message-id capable peers only)
//	 24  message id   (message-id capable peers only)
type Header struct {
	HeaderLen uint32
	BodyLen   uint32
	Type      MessageType
	Status    Status
	DataType  Datatype
	MessageID uint32
}

func (h *Header) HasMessageID() bool {
	return h.HeaderLen >= HeaderSize
}

func (h *Header) IsCallback() bool {
	return h.MessageID&CallbackBit != 0
}

// Encode writes the header into buf, which must hold h.HeaderLen bytes.
func (h *Header) Encode(buf []byte) error {
	if h.HeaderLen != LegacyHeaderSize && h.HeaderLen != HeaderSize {
		return ErrBadHeaderLength
	}
	if len(buf) < int(h.HeaderLen) {
		return ErrShortHeader
	}
	EncByteOrder.PutUint32(buf[0:4], MagicValue)
	EncByteOrder.PutUint32(buf[4:8], h.HeaderLen)
	EncByteOrder.PutUint32(buf[8:12], h.BodyLen)
	EncByteOrder.PutUint32(buf[12:16], uint32(h.Type))
	EncByteOrder.PutUint32(buf[16:20], uint32(h.Status))
	if h.HeaderLen >= HeaderSize {
		EncByteOrder.PutUint32(buf[20:24], uint32(h.DataType))
		EncByteOrder.PutUint32(buf[24:28], h.MessageID)
	}
	return nil
}

// DecodeFixed decodes the first LegacyHeaderSize bytes. The optional words
// are decoded by DecodeExtra once the remaining header bytes are read.
func (h *Header) DecodeFixed(raw []byte) error {
	if len(raw) < LegacyHeaderSize {
		return ErrShortHeader
	}
	if magic := EncByteOrder.Uint32(raw[0:4]); magic != MagicValue {
		return fmt.Errorf("%w %#x", ErrBadMagic, magic)
	}
	h.HeaderLen = EncByteOrder.Uint32(raw[4:8])
	if h.HeaderLen < LegacyHeaderSize || h.HeaderLen > kMaxHeaderSize || h.HeaderLen%4 != 0 {
		return fmt.Errorf("%w %d", ErrBadHeaderLength, h.HeaderLen)
	}
	h.BodyLen = EncByteOrder.Uint32(raw[8:12])
	h.Type = MessageType(EncByteOrder.Uint32(raw[12:16]))
	h.Status = Status(EncByteOrder.Uint32(raw[16:20]))
	h.DataType = 0
	h.MessageID = 0
	return nil
}

func (h *Header) DecodeExtra(raw []byte) {
	if h.HeaderLen >= HeaderSize && len(raw) >= HeaderSize {
		h.DataType = Datatype(EncByteOrder.Uint32(raw[20:24]))
		h.MessageID = EncByteOrder.Uint32(raw[24:28])
	}
}

// Decode decodes a complete header.
func (h *Header) Decode(raw []byte) error {
	if err := h.DecodeFixed(raw); err != nil {
		return err
	}
	if len(raw) < int(h.HeaderLen) {
		return ErrShortHeader
	}
	h.DecodeExtra(raw)
	return nil
}

func (h *Header) PrettyPrint(w io.Writer) {
	fmt.Fprintln(w, "\nHeader:")
	fmt.Fprintf(w, "  HeaderLen\t:%d\n", h.HeaderLen)
	fmt.Fprintf(w, "  BodyLen\t:%d\n", h.BodyLen)
	fmt.Fprintf(w, "  Type\t\t:%s\n", h.Type)
	fmt.Fprintf(w, "  Status\t:%s\n", h.Status)
	if h.HasMessageID() {
		fmt.Fprintf(w, "  DataType\t:%s\n", h.DataType)
		fmt.Fprintf(w, "  MessageID\t:%#x\n", h.MessageID)
	}
}
