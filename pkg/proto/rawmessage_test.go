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
	"errors"
	"io"
	"testing"
)

func frame(t *testing.T, h Header, body []byte) []byte {
	buf := NewBuffer(DefaultBufferSize, 0)
	f, err := EncodeFrame(buf, &h, BytesEncoder(body))
	if err != nil {
		t.Fatalf("EncodeFrame: %s", err)
	}
	return append([]byte(nil), f...)
}

func TestHeaderEncodeDecode(t *testing.T) {
	for _, hlen := range []uint32{LegacyHeaderSize, HeaderSize} {
		h := Header{HeaderLen: hlen, BodyLen: 12, Type: MsgGetByName.Response(), Status: StatusNotFound,
			DataType: TypeDouble, MessageID: CallbackBit | 7}
		raw := make([]byte, hlen)
		if err := h.Encode(raw); err != nil {
			t.Fatalf("Encode: %s", err)
		}
		var got Header
		if err := got.Decode(raw); err != nil {
			t.Fatalf("Decode: %s", err)
		}
		if hlen == LegacyHeaderSize {
			h.DataType = 0
			h.MessageID = 0
		}
		if got != h {
			t.Errorf("got %+v, want %+v", got, h)
		}
		if got.HasMessageID() != (hlen == HeaderSize) {
			t.Errorf("HasMessageID wrong for header length %d", hlen)
		}
	}
}

func TestHeaderBadMagic(t *testing.T) {
	raw := make([]byte, HeaderSize)
	h := Header{HeaderLen: HeaderSize}
	h.Encode(raw)
	raw[0] ^= 0xff
	var got Header
	if err := got.Decode(raw); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected bad magic, got %v", err)
	}
}

func TestHeaderBadLength(t *testing.T) {
	raw := make([]byte, HeaderSize)
	h := Header{HeaderLen: HeaderSize}
	h.Encode(raw)
	EncByteOrder.PutUint32(raw[4:], 22)
	var got Header
	if err := got.Decode(raw); !errors.Is(err, ErrBadHeaderLength) {
		t.Errorf("expected bad header length, got %v", err)
	}
}

func TestReadFrame(t *testing.T) {
	body := []byte("motor1.position\x00")
	in := frame(t, Header{HeaderLen: HeaderSize, Type: MsgGetByName, MessageID: 3}, body)
	var m RawMessage
	buf := NewBuffer(0, 0)
	n, err := m.Read(bytes.NewReader(in), buf)
	if err != nil {
		t.Fatalf("Read: %s", err)
	}
	if n != len(in) {
		t.Errorf("read %d bytes, want %d", n, len(in))
	}
	if m.Type != MsgGetByName || m.MessageID != 3 || !bytes.Equal(m.Body(), body) {
		t.Errorf("unexpected message %+v body %q", m.Header, m.Body())
	}
}

func TestReadFrameEOF(t *testing.T) {
	var m RawMessage
	if _, err := m.Read(bytes.NewReader(nil), NewBuffer(0, 0)); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
	in := frame(t, Header{HeaderLen: LegacyHeaderSize, Type: MsgGetOption}, []byte{0, 0, 0, 1})
	if _, err := m.Read(bytes.NewReader(in[:10]), NewBuffer(0, 0)); !errors.Is(err, ErrShortHeader) {
		t.Errorf("expected short header, got %v", err)
	}
	if _, err := m.Read(bytes.NewReader(in[:len(in)-1]), NewBuffer(0, 0)); !errors.Is(err, ErrShortBody) {
		t.Errorf("expected short body, got %v", err)
	}
}

func TestReadOversizedBodyKeepsStream(t *testing.T) {
	big := frame(t, Header{HeaderLen: HeaderSize, Type: MsgPutByName}, make([]byte, 200))
	next := frame(t, Header{HeaderLen: HeaderSize, Type: MsgGetOption}, []byte{0, 0, 0, 1})
	r := bytes.NewReader(append(big, next...))

	buf := NewBuffer(0, 100)
	var m RawMessage
	_, err := m.Read(r, buf)
	if StatusOf(err) != StatusWouldExceedLimit {
		t.Fatalf("expected would exceed limit, got %v", err)
	}
	if m.Type != MsgPutByName {
		t.Errorf("header not populated: %+v", m.Header)
	}
	if _, err = m.Read(r, buf); err != nil {
		t.Fatalf("next frame: %s", err)
	}
	if m.Type != MsgGetOption {
		t.Errorf("stream out of step, got %s", m.Type)
	}
}

func TestEncodeFrameGrowsOnce(t *testing.T) {
	buf := NewBuffer(HeaderSize+8, 0)
	v := &Value{Type: TypeDouble, Dims: []int{100}, Data: make([]float64, 100)}
	c, _ := NewCodec(FormatRaw, CodecOptions{})
	h := Header{HeaderLen: HeaderSize, Type: MsgGetByName.Response()}
	f, err := EncodeFrame(buf, &h, ValueEncoder(c, v))
	if err != nil {
		t.Fatalf("EncodeFrame: %s", err)
	}
	if buf.Grows() != 1 {
		t.Errorf("buffer grew %d times, want 1", buf.Grows())
	}
	if len(f) != HeaderSize+800 || h.BodyLen != 800 {
		t.Errorf("frame length %d body %d", len(f), h.BodyLen)
	}
}

func TestEncodeFrameLimit(t *testing.T) {
	buf := NewBuffer(HeaderSize, 64)
	h := Header{HeaderLen: HeaderSize}
	_, err := EncodeFrame(buf, &h, BytesEncoder(make([]byte, 100)))
	if StatusOf(err) != StatusWouldExceedLimit {
		t.Errorf("expected would exceed limit, got %v", err)
	}
}

func TestChainEncoderNeed(t *testing.T) {
	enc := ChainEncoder(NameEncoder("a.b"), WordsEncoder(1, 2), DoubleEncoder(1))
	_, err := enc(make([]byte, 2))
	var short *ShortBufferError
	if !errors.As(err, &short) || short.Need != 4+8+8 {
		t.Fatalf("unexpected %v", err)
	}
	n, err := enc(make([]byte, short.Need))
	if err != nil || n != short.Need {
		t.Errorf("n=%d err=%v", n, err)
	}
}
