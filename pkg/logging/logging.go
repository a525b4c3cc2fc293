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

// Package logging builds key/value log lines.
package logging

import (
	"bytes"
	"strconv"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

type KeyValueBuffer struct {
	bytes.Buffer
	delimiter     byte
	pairDelimiter byte
}

func NewKVBufferForLog() *KeyValueBuffer {
	b := &KeyValueBuffer{
		delimiter:     '=',
		pairDelimiter: ',',
	}
	return b
}

func NewKVBuffer() *KeyValueBuffer {
	b := &KeyValueBuffer{
		pairDelimiter: '&',
		delimiter:     '=',
	}
	return b
}

var (
	logDataKeyConnID     []byte = []byte("conn")
	logDataKeySession    []byte = []byte("sid")
	logDataKeyRemote     []byte = []byte("raddr")
	logDataKeyUser       []byte = []byte("user")
	logDataKeyProgram    []byte = []byte("prog")
	logDataKeyPid        []byte = []byte("pid")
	logDataKeyMsgType    []byte = []byte("msg")
	logDataKeyStatus     []byte = []byte("st")
	logDataKeyField      []byte = []byte("field")
	logDataKeyMessageID  []byte = []byte("mid")
	logDataKeyFormat     []byte = []byte("fmt")
	logDataKeyBodyLen    []byte = []byte("len")
	logDataKeyHandleTime []byte = []byte("rht")
	logDataKeyReason     []byte = []byte("reason")
)

func (b *KeyValueBuffer) AddBytes(key []byte, value []byte) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(b.pairDelimiter)
	}
	b.Write(key)
	b.WriteByte(b.delimiter)
	b.Write(value)
	return b
}

func (b *KeyValueBuffer) Add(key []byte, value string) *KeyValueBuffer {
	if b.Len() > 0 {
		b.WriteByte(b.pairDelimiter)
	}
	b.Write(key)
	b.WriteByte(b.delimiter)
	b.WriteString(value)
	return b
}

func (b *KeyValueBuffer) AddInt(key []byte, value int) *KeyValueBuffer {
	return b.Add(key, strconv.Itoa(value))
}

func (b *KeyValueBuffer) AddUInt64(key []byte, value uint64) *KeyValueBuffer {
	return b.Add(key, strconv.FormatUint(value, 10))
}

func (b *KeyValueBuffer) AddConnID(id uint64) *KeyValueBuffer {
	return b.AddUInt64(logDataKeyConnID, id)
}

func (b *KeyValueBuffer) AddSession(sid string) *KeyValueBuffer {
	if len(sid) != 0 {
		b.Add(logDataKeySession, sid)
	}
	return b
}

func (b *KeyValueBuffer) AddRemote(addr string) *KeyValueBuffer {
	return b.Add(logDataKeyRemote, addr)
}

// AddClient adds the identity a client reported through set-client-info.
func (b *KeyValueBuffer) AddClient(user, program string, pid int) *KeyValueBuffer {
	if len(user) != 0 {
		b.Add(logDataKeyUser, user)
	}
	if len(program) != 0 {
		b.Add(logDataKeyProgram, program)
	}
	if pid != 0 {
		b.AddInt(logDataKeyPid, pid)
	}
	return b
}

func (b *KeyValueBuffer) AddMsgType(t proto.MessageType) *KeyValueBuffer {
	return b.Add(logDataKeyMsgType, t.String())
}

func (b *KeyValueBuffer) AddStatus(st proto.Status) *KeyValueBuffer {
	if b.pairDelimiter == '&' && st == proto.StatusSuccess {
		return b
	}
	return b.Add(logDataKeyStatus, st.String())
}

func (b *KeyValueBuffer) AddField(name string) *KeyValueBuffer {
	if len(name) != 0 {
		b.Add(logDataKeyField, name)
	}
	return b
}

func (b *KeyValueBuffer) AddMessageID(id uint32) *KeyValueBuffer {
	if id != 0 {
		b.AddUInt64(logDataKeyMessageID, uint64(id))
	}
	return b
}

func (b *KeyValueBuffer) AddFormat(f proto.DataFormat) *KeyValueBuffer {
	return b.Add(logDataKeyFormat, f.String())
}

func (b *KeyValueBuffer) AddBodyLen(n uint32) *KeyValueBuffer {
	return b.AddUInt64(logDataKeyBodyLen, uint64(n))
}

func (b *KeyValueBuffer) AddRequestHandleTime(rhtus int) *KeyValueBuffer {
	return b.AddInt(logDataKeyHandleTime, rhtus)
}

func (b *KeyValueBuffer) AddReason(reason string) *KeyValueBuffer {
	return b.Add(logDataKeyReason, reason)
}

// AddRequest adds the header fields that identify a request.
func (b *KeyValueBuffer) AddRequest(h *proto.Header) *KeyValueBuffer {
	return b.AddMsgType(h.Type).AddMessageID(h.MessageID).AddBodyLen(h.BodyLen)
}
