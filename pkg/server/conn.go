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

package server

import (
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/eapache/queue"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

type ConnState int

const (
	StateAccepted ConnState = iota
	StateAwaitingHeader
	StateAwaitingBody
	StateDispatching
	StateClosing
)

var connStateNames = [...]string{"accepted", "awaiting header", "awaiting body", "dispatching", "closing"}

func (s ConnState) String() string {
	if int(s) < len(connStateNames) {
		return connStateNames[s]
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

// Credentials of a Unix domain client.
type Credentials struct {
	Pid int32
	Uid uint32
	Gid uint32
}

// Connection is the server side of one client socket. It is owned by
// the server loop.
type Connection struct {
	id      uint64
	session string
	conn    net.Conn
	fd      int
	network string
	raddr   string
	opened  time.Time
	state   ConnState

	// ready batch the connection was accepted in
	acceptedIn uint64

	format     proto.DataFormat
	codec      proto.Codec
	long64     bool
	version    uint32
	versionTm  uint32
	messageIDs bool

	user    string
	program string
	pid     int
	creds   *Credentials

	inbuf  *proto.Buffer
	outbuf *proto.Buffer
	outbox *queue.Queue

	lastMessageID uint32
	numRequests   uint64
	numPushes     uint64
	numDropped    uint64
}

// socketFd returns the descriptor of a connection or listener for the
// poller. The descriptor stays owned by c.
func socketFd(c interface{}) (int, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return -1, fmt.Errorf("%T has no descriptor", c)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	fd := -1
	if err = raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return -1, err
	}
	return fd, nil
}

func (c *Connection) ID() uint64 {
	return c.id
}

func (c *Connection) RemoteAddr() string {
	return c.raddr
}

func (c *Connection) Format() proto.DataFormat {
	return c.format
}

// SetFormat switches the payload format of the connection.
func (c *Connection) SetFormat(f proto.DataFormat, precision int) error {
	codec, err := proto.NewCodec(f, proto.CodecOptions{Long64: c.long64, Precision: precision})
	if err != nil {
		return err
	}
	c.format = f
	c.codec = codec
	return nil
}

// SetLong64 switches 64-bit longs on or off, rebuilding the codec. The
// previous setting is kept when the codec cannot be rebuilt.
func (c *Connection) SetLong64(on bool, precision int) error {
	prev := c.long64
	c.long64 = on
	if err := c.SetFormat(c.format, precision); err != nil {
		c.long64 = prev
		return err
	}
	return nil
}

// SetVersion records the client protocol version. Clients at or above
// proto.MessageIDVersion understand message ids.
func (c *Connection) SetVersion(v uint32) {
	c.version = v
	if v >= proto.MessageIDVersion {
		c.messageIDs = true
	}
}

// SetClientInfo stores the client identity. The user name is kept from
// the first call.
func (c *Connection) SetClientInfo(user, program string, pid int) {
	if c.user == "" {
		c.user = user
	}
	c.program = program
	c.pid = pid
}

func (c *Connection) headerLen() uint32 {
	if c.messageIDs {
		return proto.HeaderSize
	}
	return proto.LegacyHeaderSize
}

// enqueue frames a message and appends it to the outbox. The frame is
// copied out of the connection buffer.
func (c *Connection) enqueue(h *proto.Header, enc proto.Encoder) error {
	frame, err := proto.EncodeFrame(c.outbuf, h, enc)
	if err != nil {
		return err
	}
	c.outbox.Add(append([]byte(nil), frame...))
	return nil
}

// flush writes every queued frame. A write error leaves the rest queued
// and is fatal to the connection.
func (c *Connection) flush(timeout time.Duration) error {
	if c.outbox.Length() == 0 {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	for c.outbox.Length() > 0 {
		frame := c.outbox.Peek().([]byte)
		if _, err := c.conn.Write(frame); err != nil {
			return err
		}
		c.outbox.Remove()
	}
	return nil
}

func (c *Connection) pending() int {
	return c.outbox.Length()
}

func (c *Connection) logOpen() string {
	b := logging.NewKVBufferForLog()
	b.AddConnID(c.id).AddSession(c.session).AddRemote(c.raddr)
	if c.creds != nil {
		b.AddInt([]byte("uid"), int(c.creds.Uid)).AddInt([]byte("pid"), int(c.creds.Pid))
	}
	return b.String()
}

func (c *Connection) logClose(reason string) string {
	b := logging.NewKVBufferForLog()
	b.AddConnID(c.id).AddRemote(c.raddr).AddClient(c.user, c.program, c.pid)
	b.AddUInt64([]byte("nreq"), c.numRequests).AddUInt64([]byte("npush"), c.numPushes)
	if c.numDropped != 0 {
		b.AddUInt64([]byte("ndrop"), c.numDropped)
	}
	b.AddInt([]byte("dur"), int(time.Since(c.opened).Milliseconds()))
	if reason != "" {
		b.AddReason(reason)
	}
	return b.String()
}
