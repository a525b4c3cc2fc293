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

package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/eapache/queue"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

type clientImplT struct {
	config Config
	conn   net.Conn
	format proto.DataFormat
	long64 bool
	codec  proto.Codec

	inbuf  *proto.Buffer
	outbuf *proto.Buffer
	lastID uint32

	fields    map[string]*Field
	callbacks map[uint32]*Field
	pending   *queue.Queue
}

// Dial connects to addr with the default configuration adjusted by opts.
func Dial(network, addr string, opts ...IOption) (IClient, error) {
	var conf Config
	conf.SetDefault()
	conf.Network = network
	conf.Addr = addr
	for _, op := range opts {
		op(&conf)
	}
	return New(conf)
}

// New connects and negotiates the client version, the data format and the
// client info.
func New(conf Config) (IClient, error) {
	conf.SetDefaultIfNotDefined()
	if err := conf.validate(); err != nil {
		return nil, err
	}
	format, _ := proto.ParseDataFormat(conf.DataFormat)
	nc, err := net.DialTimeout(conf.Network, conf.Addr, conf.ConnectTimeout.Duration)
	if err != nil {
		return nil, err
	}
	c := &clientImplT{
		config:    conf,
		conn:      nc,
		format:    proto.FormatRaw,
		inbuf:     proto.NewBuffer(proto.DefaultBufferSize, conf.BufferLimit),
		outbuf:    proto.NewBuffer(proto.DefaultBufferSize, conf.BufferLimit),
		fields:    make(map[string]*Field),
		callbacks: make(map[uint32]*Field),
		pending:   queue.New(),
	}
	c.codec, _ = proto.NewCodec(c.format, proto.CodecOptions{})

	if err = c.handshake(format); err != nil {
		nc.Close()
		return nil, err
	}
	glog.Debugf("connected to %s %s format=%s", conf.Network, conf.Addr, c.format)
	return c, nil
}

func (c *clientImplT) handshake(format proto.DataFormat) error {
	if c.config.Network == "unix" {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout.Duration))
		if _, err := c.conn.Write([]byte{0}); err != nil {
			return err
		}
	}
	if !c.config.Legacy {
		if err := c.SetOption(proto.OptionClientVersion, proto.CurrentVersion); err != nil {
			return err
		}
	}
	if c.config.Long64 {
		if err := c.SetOption(proto.OptionLong64, 1); err != nil {
			return err
		}
	}
	if err := c.SetFormat(format); err != nil {
		return err
	}
	if c.config.User != "" {
		program := c.config.Program
		if program == "" {
			program = filepath.Base(os.Args[0])
		}
		return c.SetClientInfo(c.config.User, program, os.Getpid())
	}
	return nil
}

func (c *clientImplT) Close() error {
	if c.conn == nil {
		return ErrClosed
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *clientImplT) headerLen() uint32 {
	if c.config.Legacy {
		return proto.LegacyHeaderSize
	}
	return proto.HeaderSize
}

func (c *clientImplT) newID() uint32 {
	c.lastID = (c.lastID + 1) &^ proto.CallbackBit
	if c.lastID == 0 {
		c.lastID = 1
	}
	return c.lastID
}

func (c *clientImplT) logError(t proto.MessageType, err error) {
	if err == nil || proto.IsStatusError(err) {
		return
	}
	b := logging.NewKVBufferForLog()
	b.AddMsgType(t).AddRemote(c.config.Addr).AddReason(err.Error())
	glog.Errorf("[ERROR] %s", b.String())
}

// roundTrip sends one request and returns the reply body, which is valid
// until the next request.
func (c *clientImplT) roundTrip(t proto.MessageType, enc proto.Encoder) (h proto.Header, body []byte, err error) {
	defer func() { c.logError(t, err) }()
	if c.conn == nil {
		err = ErrClosed
		return
	}
	req := proto.Header{HeaderLen: c.headerLen(), Type: t}
	if !c.config.Legacy {
		req.MessageID = c.newID()
	}
	frame, err := proto.EncodeFrame(c.outbuf, &req, enc)
	if err != nil {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout.Duration))
	if _, err = c.conn.Write(frame); err != nil {
		return
	}

	for {
		var msg proto.RawMessage
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout.Duration))
		if _, err = msg.Read(c.conn, c.inbuf); err != nil {
			return
		}
		if c.isCallback(&msg.Header) {
			c.queueCallback(&msg)
			continue
		}
		if !c.config.Legacy && msg.HasMessageID() && msg.MessageID != req.MessageID {
			err = fmt.Errorf("%w: message id %d, expected %d", ErrUnexpectedReply, msg.MessageID, req.MessageID)
			return
		}
		if err = checkReply(t, &msg.Header, msg.Body()); err != nil {
			return
		}
		if msg.Type != t.Response() && !legacyReply(t, msg.Type) {
			err = fmt.Errorf("%w: %s to %s", ErrUnexpectedReply, msg.Type, t)
			return
		}
		return msg.Header, msg.Body(), nil
	}
}

func (c *clientImplT) isCallback(h *proto.Header) bool {
	return h.HasMessageID() && h.IsCallback() && h.Type == proto.MsgCallback.Response()
}

func (c *clientImplT) decodeCallback(msg *proto.RawMessage) (*Callback, error) {
	id := msg.MessageID &^ proto.CallbackBit
	f, ok := c.callbacks[id]
	if !ok {
		return nil, fmt.Errorf("callback %d was never added", id)
	}
	v, err := c.codec.Decode(msg.Body(), f.Type, f.Dims)
	if err != nil {
		return nil, err
	}
	return &Callback{ID: id, Field: f, Value: v}, nil
}

func (c *clientImplT) queueCallback(msg *proto.RawMessage) {
	cb, err := c.decodeCallback(msg)
	if err != nil {
		glog.Warningf("callback message dropped: %s", err)
		return
	}
	c.pending.Add(cb)
}

// WaitCallback returns the next callback message, waiting at most
// timeout for one to arrive.
func (c *clientImplT) WaitCallback(timeout time.Duration) (*Callback, error) {
	if c.pending.Length() > 0 {
		return c.pending.Remove().(*Callback), nil
	}
	if c.conn == nil {
		return nil, ErrClosed
	}
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var msg proto.RawMessage
		if _, err := msg.Read(c.conn, c.inbuf); err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return nil, ErrNoCallback
			}
			return nil, err
		}
		if !c.isCallback(&msg.Header) {
			return nil, fmt.Errorf("%w: %s while waiting for a callback", ErrUnexpectedReply, msg.Type)
		}
		cb, err := c.decodeCallback(&msg)
		if err != nil {
			glog.Warningf("callback message dropped: %s", err)
			continue
		}
		return cb, nil
	}
}

func (c *clientImplT) SetClientInfo(user, program string, pid int) error {
	text := user + " " + program + " " + strconv.Itoa(pid)
	_, _, err := c.roundTrip(proto.MsgSetClientInfo, proto.StringEncoder(text))
	return err
}

func (c *clientImplT) GetOption(opt proto.OptionNumber) (uint32, error) {
	_, body, err := c.roundTrip(proto.MsgGetOption, proto.WordsEncoder(uint32(opt)))
	if err != nil {
		return 0, err
	}
	words, _, err := proto.Words(body, 1)
	if err != nil {
		return 0, err
	}
	return words[0], nil
}

// SetOption also switches the local codec for the format options.
func (c *clientImplT) SetOption(opt proto.OptionNumber, v uint32) error {
	if _, _, err := c.roundTrip(proto.MsgSetOption, proto.WordsEncoder(uint32(opt), v)); err != nil {
		return err
	}
	switch opt {
	case proto.OptionDataFormat:
		c.format = proto.DataFormat(v)
	case proto.OptionLong64:
		c.long64 = v != 0
	default:
		return nil
	}
	codec, err := proto.NewCodec(c.format, proto.CodecOptions{Long64: c.long64})
	if err != nil {
		return err
	}
	c.codec = codec
	return nil
}

func (c *clientImplT) SetFormat(f proto.DataFormat) error {
	return c.SetOption(proto.OptionDataFormat, uint32(f))
}

func (c *clientImplT) FieldType(name string) (proto.Datatype, []int, error) {
	_, body, err := c.roundTrip(proto.MsgGetFieldType, proto.NameEncoder(name))
	if err != nil {
		return 0, nil, err
	}
	words, rest, err := proto.Words(body, 2)
	if err != nil {
		return 0, nil, err
	}
	ndims := int(words[1])
	if ndims == 0 {
		return proto.Datatype(words[0]), nil, nil
	}
	sizes, _, err := proto.Words(rest, ndims)
	if err != nil {
		return 0, nil, err
	}
	dims := make([]int, ndims)
	for i, d := range sizes {
		dims[i] = int(d)
	}
	return proto.Datatype(words[0]), dims, nil
}

func (c *clientImplT) NetworkHandle(name string) (rh, fh uint32, err error) {
	_, body, err := c.roundTrip(proto.MsgGetNetworkHandle, proto.NameEncoder(name))
	if err != nil {
		return
	}
	words, _, err := proto.Words(body, 2)
	if err != nil {
		return
	}
	return words[0], words[1], nil
}

// Field returns the cached description of name, asking the server on
// first use.
func (c *clientImplT) Field(name string) (*Field, error) {
	if f, ok := c.fields[name]; ok {
		return f, nil
	}
	dt, dims, err := c.FieldType(name)
	if err != nil {
		return nil, err
	}
	rh, fh, err := c.NetworkHandle(name)
	if err != nil {
		return nil, err
	}
	f := &Field{Name: name, Type: dt, Dims: dims, RecordHandle: rh, FieldHandle: fh}
	c.fields[name] = f
	return f, nil
}

func (c *clientImplT) Get(name string) (*proto.Value, error) {
	f, err := c.Field(name)
	if err != nil {
		return nil, err
	}
	_, body, err := c.roundTrip(proto.MsgGetByName, proto.NameEncoder(name))
	if err != nil {
		return nil, err
	}
	return c.codec.Decode(body, f.Type, f.Dims)
}

func (c *clientImplT) Put(name string, v *proto.Value) error {
	_, _, err := c.roundTrip(proto.MsgPutByName,
		proto.ChainEncoder(proto.NameEncoder(name), proto.ValueEncoder(c.codec, v)))
	return err
}

func (c *clientImplT) GetByHandle(f *Field) (*proto.Value, error) {
	_, body, err := c.roundTrip(proto.MsgGetByHandle, proto.WordsEncoder(f.RecordHandle, f.FieldHandle))
	if err != nil {
		return nil, err
	}
	return c.codec.Decode(body, f.Type, f.Dims)
}

func (c *clientImplT) PutByHandle(f *Field, v *proto.Value) error {
	_, _, err := c.roundTrip(proto.MsgPutByHandle,
		proto.ChainEncoder(proto.WordsEncoder(f.RecordHandle, f.FieldHandle), proto.ValueEncoder(c.codec, v)))
	return err
}

func (c *clientImplT) GetAttribute(name string, attr proto.AttributeNumber) (float64, error) {
	_, body, err := c.roundTrip(proto.MsgGetAttribute,
		proto.ChainEncoder(proto.NameEncoder(name), proto.WordsEncoder(uint32(attr))))
	if err != nil {
		return 0, err
	}
	return proto.Double(body)
}

func (c *clientImplT) SetAttribute(name string, attr proto.AttributeNumber, x float64) error {
	_, _, err := c.roundTrip(proto.MsgSetAttribute,
		proto.ChainEncoder(proto.NameEncoder(name), proto.WordsEncoder(uint32(attr)), proto.DoubleEncoder(x)))
	return err
}

func (c *clientImplT) AddCallback(f *Field) (uint32, error) {
	_, body, err := c.roundTrip(proto.MsgAddCallback,
		proto.WordsEncoder(f.RecordHandle, f.FieldHandle, uint32(proto.CallbackValueChanged)))
	if err != nil {
		return 0, err
	}
	words, _, err := proto.Words(body, 1)
	if err != nil {
		return 0, err
	}
	c.callbacks[words[0]] = f
	return words[0], nil
}

func (c *clientImplT) DeleteCallback(id uint32) error {
	_, _, err := c.roundTrip(proto.MsgDeleteCallback, proto.WordsEncoder(id))
	return err
}
