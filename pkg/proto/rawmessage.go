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
	"errors"
	"fmt"
	"io"
)

// ShortBufferError is returned by encoders when dst cannot hold the
// encoded form. Need is the total number of bytes required.
type ShortBufferError struct {
	Need int
}

func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("buffer too small, %d bytes needed", e.Need)
}

type RawMessage struct {
	Header
	body []byte
}

func (m *RawMessage) Body() []byte {
	return m.body
}

func (m *RawMessage) Reset() {
	m.Header = Header{}
	m.body = nil
}

// Read reads exactly one frame from r into buf. The returned body aliases
// buf and is valid until the next use of buf.
//
// A body that cannot fit under the buffer limit is drained from r and
// reported as a *StatusError with the header populated, so the caller can
// reply and keep the connection. Any other error is a transport error.
//
// Note: read timeout is set at conn level
func (m *RawMessage) Read(r io.Reader, buf *Buffer) (n int, err error) {
	m.body = nil
	data := buf.Bytes()
	if n, err = io.ReadFull(r, data[:LegacyHeaderSize]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = ErrShortHeader
		}
		return
	}
	if err = m.Header.DecodeFixed(data[:LegacyHeaderSize]); err != nil {
		return
	}

	hlen := int(m.HeaderLen)
	if hlen > LegacyHeaderSize {
		if err = buf.Grow(hlen); err != nil {
			return
		}
		data = buf.Bytes()
		var k int
		k, err = io.ReadFull(r, data[LegacyHeaderSize:hlen])
		n += k
		if err != nil {
			err = fmt.Errorf("%w: %s", ErrShortHeader, err)
			return
		}
		m.Header.DecodeExtra(data[:hlen])
	}

	total := hlen + int(m.BodyLen)
	if gerr := buf.Grow(total); gerr != nil {
		var k int64
		k, err = io.CopyN(io.Discard, r, int64(m.BodyLen))
		n += int(k)
		if err == nil {
			err = gerr
		}
		return
	}
	data = buf.Bytes()

	var k int
	k, err = io.ReadFull(r, data[hlen:total])
	n += k
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrShortBody, err)
		return
	}
	m.body = data[hlen:total]
	return
}

// Encoder writes a message body into dst and returns its length, or a
// *ShortBufferError when dst is too small.
type Encoder func(dst []byte) (int, error)

// EncodeFrame lays h and the body produced by enc out in buf. When the
// encoder reports a short buffer, buf is grown to the reported size and
// the encoder is called once more. The returned frame aliases buf.
func EncodeFrame(buf *Buffer, h *Header, enc Encoder) ([]byte, error) {
	hlen := int(h.HeaderLen)
	if err := buf.Grow(hlen); err != nil {
		return nil, err
	}
	n := 0
	var err error
	if enc != nil {
		n, err = enc(buf.Bytes()[hlen:])
		var short *ShortBufferError
		if errors.As(err, &short) {
			if gerr := buf.Grow(hlen + short.Need); gerr != nil {
				return nil, gerr
			}
			n, err = enc(buf.Bytes()[hlen:])
		}
		if err != nil {
			return nil, err
		}
	}
	h.BodyLen = uint32(n)
	data := buf.Bytes()
	if err = h.Encode(data); err != nil {
		return nil, err
	}
	return data[:hlen+n], nil
}

// BytesEncoder copies b as the body.
func BytesEncoder(b []byte) Encoder {
	return func(dst []byte) (int, error) {
		if len(dst) < len(b) {
			return 0, &ShortBufferError{Need: len(b)}
		}
		return copy(dst, b), nil
	}
}

// StringEncoder writes s followed by a NUL byte.
func StringEncoder(s string) Encoder {
	return func(dst []byte) (int, error) {
		need := len(s) + 1
		if len(dst) < need {
			return 0, &ShortBufferError{Need: need}
		}
		copy(dst, s)
		dst[len(s)] = 0
		return need, nil
	}
}

// WordsEncoder writes big-endian 32-bit words.
func WordsEncoder(words ...uint32) Encoder {
	return func(dst []byte) (int, error) {
		need := 4 * len(words)
		if len(dst) < need {
			return 0, &ShortBufferError{Need: need}
		}
		for i, w := range words {
			EncByteOrder.PutUint32(dst[4*i:], w)
		}
		return need, nil
	}
}

// ChainEncoder runs encoders back to back.
func ChainEncoder(encs ...Encoder) Encoder {
	return func(dst []byte) (int, error) {
		off := 0
		for i, enc := range encs {
			n, err := enc(dst[off:])
			if err != nil {
				var short *ShortBufferError
				if errors.As(err, &short) {
					return 0, &ShortBufferError{Need: off + short.Need + encodedSize(encs[i+1:])}
				}
				return 0, err
			}
			off += n
		}
		return off, nil
	}
}

// encodedSize sizes encoders by running them against an empty buffer.
func encodedSize(encs []Encoder) (need int) {
	for _, enc := range encs {
		n, err := enc(nil)
		var short *ShortBufferError
		if errors.As(err, &short) {
			need += short.Need
		} else {
			need += n
		}
	}
	return
}
