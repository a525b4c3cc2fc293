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
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/nbeaver/mx-trunk-sub019/pkg/handle"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/otel"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
)

type handlerFunc func(s *Server, c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error)

var handlers = map[proto.MessageType]handlerFunc{
	proto.MsgGetByName:        (*Server).getByName,
	proto.MsgPutByName:        (*Server).putByName,
	proto.MsgGetByHandle:      (*Server).getByHandle,
	proto.MsgPutByHandle:      (*Server).putByHandle,
	proto.MsgGetNetworkHandle: (*Server).getNetworkHandle,
	proto.MsgGetFieldType:     (*Server).getFieldType,
	proto.MsgSetClientInfo:    (*Server).setClientInfo,
	proto.MsgGetOption:        (*Server).getOption,
	proto.MsgSetOption:        (*Server).setOption,
	proto.MsgGetAttribute:     (*Server).getAttribute,
	proto.MsgSetAttribute:     (*Server).setAttribute,
	proto.MsgAddCallback:      (*Server).addCallback,
	proto.MsgDeleteCallback:   (*Server).deleteCallback,
}

// dispatch answers one request. Every request gets exactly one reply
// queued on c.
func (s *Server) dispatch(c *Connection, msg *proto.RawMessage) {
	start := time.Now()
	c.state = StateDispatching
	if msg.HasMessageID() {
		c.messageIDs = true
	}
	c.lastMessageID = msg.MessageID
	c.numRequests++

	if glog.LOG_VERBOSE {
		glog.Verbosef("conn %d request %s", c.id, spew.Sdump(msg.Header))
	}

	reply := proto.Header{
		HeaderLen: c.headerLen(),
		Type:      msg.Type.Response(),
		MessageID: msg.MessageID,
	}
	var enc proto.Encoder
	var err error
	if h, ok := handlers[msg.Type]; ok {
		enc, err = h(s, c, msg, &reply)
	} else {
		reply.Type = proto.MsgUnexpectedError
		err = proto.Errorf(proto.StatusUnsupported, "message type %#x is not supported", uint32(msg.Type))
	}
	if !c.messageIDs {
		switch msg.Type {
		case proto.MsgGetByHandle:
			reply.Type = proto.MsgGetByName.Response()
		case proto.MsgPutByHandle:
			reply.Type = proto.MsgPutByName.Response()
		}
	}
	st := s.reply(c, &reply, enc, err)
	rht := time.Since(start)

	s.stats.Put(msg.Type, rht, st)
	if otel.IsEnabled() {
		status := otel.Success
		if st != proto.StatusSuccess {
			status = otel.Error
		}
		otel.RecordRequest(msg.Type.String(), status, rht)
	}
	if st != proto.StatusSuccess && glog.LOG_DEBUG {
		b := logging.NewKVBufferForLog()
		b.AddConnID(c.id).AddRequest(&msg.Header).AddStatus(st).AddRequestHandleTime(int(rht.Microseconds()))
		if err != nil {
			b.AddReason(err.Error())
		}
		glog.Debugf("%s", b.String())
	}
}

// reply queues the reply frame, or an error reply when the handler or the
// encoding fails, and returns the status sent.
func (s *Server) reply(c *Connection, h *proto.Header, enc proto.Encoder, err error) proto.Status {
	if err == nil {
		if enc == nil {
			enc = proto.StatusOnlyEncoder()
		}
		grows := c.outbuf.Grows()
		err = c.enqueue(h, enc)
		s.replyGrows.Add(int64(c.outbuf.Grows() - grows))
		if err == nil {
			return proto.StatusSuccess
		}
	}
	st := proto.StatusOf(err)
	h.Status = st
	h.DataType = 0
	if eerr := c.enqueue(h, proto.StringEncoder(err.Error())); eerr != nil {
		glog.Warningf("conn %d: cannot queue error reply: %s", c.id, eerr)
	}
	return st
}

func (c *Connection) isText() bool {
	return c.format == proto.FormatToken
}

func (s *Server) fieldByHandle(body []byte) (*record.Field, []byte, error) {
	words, rest, err := proto.Words(body, 2)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.engine.ResolveHandle(words[0], words[1])
	return f, rest, err
}

func (s *Server) fieldByName(body []byte, text bool) (*record.Field, []byte, error) {
	name, rest, err := proto.DecodeName(body, text)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.engine.ResolveName(name)
	return f, rest, err
}

func (s *Server) getByName(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	f, _, err := s.fieldByName(msg.Body(), c.isText())
	if err != nil {
		return nil, err
	}
	return s.getField(c, f, reply)
}

func (s *Server) getByHandle(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	f, _, err := s.fieldByHandle(msg.Body())
	if err != nil {
		return nil, err
	}
	return s.getField(c, f, reply)
}

func (s *Server) getField(c *Connection, f *record.Field, reply *proto.Header) (proto.Encoder, error) {
	v, err := s.engine.Get(f)
	if err != nil {
		return nil, err
	}
	reply.DataType = f.Type
	return proto.ValueEncoder(c.codec, v), nil
}

func (s *Server) putByName(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	f, rest, err := s.fieldByName(msg.Body(), c.isText())
	if err != nil {
		return nil, err
	}
	return s.putField(c, f, rest)
}

func (s *Server) putByHandle(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	f, rest, err := s.fieldByHandle(msg.Body())
	if err != nil {
		return nil, err
	}
	return s.putField(c, f, rest)
}

func (s *Server) putField(c *Connection, f *record.Field, body []byte) (proto.Encoder, error) {
	if err := s.engine.Put(f, body, c.codec); err != nil {
		return nil, err
	}
	s.checkField(f, false)
	return nil, nil
}

func (s *Server) getNetworkHandle(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	f, _, err := s.fieldByName(msg.Body(), false)
	if err != nil {
		return nil, err
	}
	rh, fh, err := s.engine.NetworkHandle(f)
	if err != nil {
		return nil, err
	}
	return proto.WordsEncoder(rh, fh), nil
}

func (s *Server) getFieldType(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	f, _, err := s.fieldByName(msg.Body(), false)
	if err != nil {
		return nil, err
	}
	return proto.WordsEncoder(s.engine.FieldType(f)...), nil
}

// setClientInfo parses "user program pid". Missing trailing items are
// left empty.
func (s *Server) setClientInfo(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	items := strings.Fields(proto.ErrorMessage(msg.Body()))
	var user, program string
	pid := 0
	if len(items) > 0 {
		user = items[0]
	}
	if len(items) > 1 {
		program = items[1]
	}
	if len(items) > 2 {
		n, err := strconv.Atoi(items[2])
		if err != nil {
			return nil, proto.Errorf(proto.StatusIllegalArgument, "client pid '%s' is not a number", items[2])
		}
		pid = n
	}
	c.SetClientInfo(user, program, pid)
	if glog.LOG_INFO {
		b := logging.NewKVBufferForLog()
		b.AddConnID(c.id).AddClient(c.user, c.program, c.pid)
		glog.Infof("client info %s", b.String())
	}
	return nil, nil
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (s *Server) getOption(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	words, _, err := proto.Words(msg.Body(), 1)
	if err != nil {
		return nil, err
	}
	var v uint32
	switch proto.OptionNumber(words[0]) {
	case proto.OptionDataFormat:
		v = uint32(c.format)
	case proto.OptionNativeDataFormat:
		v = proto.NativeByteOrder()
	case proto.OptionLong64:
		v = boolWord(c.long64)
	case proto.OptionWordSize:
		v = proto.WordSize
	case proto.OptionClientVersion:
		v = c.version
	case proto.OptionClientVersionTime:
		v = c.versionTm
	default:
		return nil, proto.Errorf(proto.StatusIllegalArgument, "illegal option number %d", words[0])
	}
	return proto.WordsEncoder(v), nil
}

func (s *Server) setOption(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	words, _, err := proto.Words(msg.Body(), 2)
	if err != nil {
		return nil, err
	}
	opt, v := proto.OptionNumber(words[0]), words[1]
	switch opt {
	case proto.OptionDataFormat:
		f := proto.DataFormat(v)
		if !f.IsValid() {
			return nil, proto.Errorf(proto.StatusUnsupported, "unsupported data format %d", v)
		}
		if err = c.SetFormat(f, s.cfg.DisplayPrecision); err != nil {
			return nil, err
		}
	case proto.OptionLong64:
		if err = c.SetLong64(v != 0, s.cfg.DisplayPrecision); err != nil {
			return nil, err
		}
	case proto.OptionClientVersion:
		c.SetVersion(v)
	case proto.OptionClientVersionTime:
		c.versionTm = v
	case proto.OptionNativeDataFormat, proto.OptionWordSize:
		return nil, proto.Errorf(proto.StatusPermissionDenied, "option %d is read only", opt)
	default:
		return nil, proto.Errorf(proto.StatusIllegalArgument, "illegal option number %d", words[0])
	}
	glog.Debugf("conn %d option %d set to %d", c.id, opt, v)
	return nil, nil
}

func (s *Server) getAttribute(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	f, rest, err := s.fieldByName(msg.Body(), false)
	if err != nil {
		return nil, err
	}
	words, _, err := proto.Words(rest, 1)
	if err != nil {
		return nil, err
	}
	x, err := s.engine.GetAttribute(f, proto.AttributeNumber(words[0]))
	if err != nil {
		return nil, err
	}
	return proto.DoubleEncoder(x), nil
}

func (s *Server) setAttribute(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	f, rest, err := s.fieldByName(msg.Body(), false)
	if err != nil {
		return nil, err
	}
	words, rest, err := proto.Words(rest, 1)
	if err != nil {
		return nil, err
	}
	x, err := proto.Double(rest)
	if err != nil {
		return nil, err
	}
	if err = s.engine.SetAttribute(f, proto.AttributeNumber(words[0]), x); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) addCallback(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	if s.cfg.DisableCallbackPoll {
		return nil, proto.Errorf(proto.StatusNotValidForCurrentState, "callbacks are disabled on this server")
	}
	if !c.messageIDs {
		return nil, proto.Errorf(proto.StatusUnsupported, "callbacks need a client that supports message ids")
	}
	words, _, err := proto.Words(msg.Body(), 3)
	if err != nil {
		return nil, err
	}
	f, err := s.engine.ResolveHandle(words[0], words[1])
	if err != nil {
		return nil, err
	}
	if f.Flags().Has(record.FlagNoAccess) {
		return nil, proto.Errorf(proto.StatusPermissionDenied, "field '%s' is not accessible", f.FullName())
	}
	cb, err := s.callbacks.Add(f.ID, c.id, proto.CallbackClass(words[2]))
	if err != nil {
		return nil, err
	}
	if cb.LastValue == nil {
		if cb.LastValue, err = f.Read(); err != nil {
			glog.Warningf("callback %d: cannot read %s: %s", cb.ID, f.FullName(), err)
		}
	}
	glog.Debugf("conn %d subscribed to %s as callback %d", c.id, f.FullName(), cb.ID)
	return proto.WordsEncoder(uint32(cb.ID)), nil
}

func (s *Server) deleteCallback(c *Connection, msg *proto.RawMessage, reply *proto.Header) (proto.Encoder, error) {
	words, _, err := proto.Words(msg.Body(), 1)
	if err != nil {
		return nil, err
	}
	if err = s.callbacks.Delete(handle.Handle(int32(words[0])), c.id); err != nil {
		return nil, err
	}
	return nil, nil
}
