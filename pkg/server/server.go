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

// Package server implements the event loop that serves field access
// requests and value changed callbacks to network clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/nbeaver/mx-trunk-sub019/pkg/access"
	"github.com/nbeaver/mx-trunk-sub019/pkg/acl"
	"github.com/nbeaver/mx-trunk-sub019/pkg/callback"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/otel"
	"github.com/nbeaver/mx-trunk-sub019/pkg/poller"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
	"github.com/nbeaver/mx-trunk-sub019/pkg/stats"
	"github.com/nbeaver/mx-trunk-sub019/pkg/util"
)

type listener struct {
	ln      net.Listener
	fd      int
	network string
}

// Server owns the connections, the record handle table and the callback
// table. Everything except NotifyFieldChanged runs on the goroutine that
// called Serve.
type Server struct {
	cfg       Config
	format    proto.DataFormat
	engine    *access.Engine
	callbacks *callback.Manager
	stats     *stats.Statistics
	acl       *acl.List

	poller    poller.Poller
	waker     *poller.Waker
	listeners map[int]*listener
	conns     map[int]*Connection
	byID      map[uint64]*Connection
	lastID    uint64
	waits     uint64

	mu      sync.Mutex
	changed map[uint64]struct{}

	replyGrows atomic.Int64
	served     chan struct{}
	instance   string
}

// New creates a server for the records of dir. A nil acl allows every
// client and a nil st keeps statistics privately.
func New(cfg Config, dir *record.Directory, st *stats.Statistics, allow *acl.List) (*Server, error) {
	cfg.SetDefaultIfNotDefined()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, _ := proto.ParseDataFormat(cfg.DefaultDataFormat)
	if st == nil {
		st = stats.NewStatistics()
	}
	p, err := poller.New(cfg.EventBackend)
	if err != nil {
		return nil, err
	}
	w, err := poller.NewWaker()
	if err != nil {
		p.Close()
		return nil, err
	}
	if err = p.Add(w.Fd()); err != nil {
		w.Close()
		p.Close()
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		format:    format,
		engine:    access.NewEngine(dir, cfg.MaxRecordHandles),
		callbacks: callback.NewManager(cfg.MaxCallbacks),
		stats:     st,
		acl:       allow,
		poller:    p,
		waker:     w,
		listeners: make(map[int]*listener),
		conns:     make(map[int]*Connection),
		byID:      make(map[uint64]*Connection),
		changed:   make(map[uint64]struct{}),
		served:    make(chan struct{}),
		instance:  util.NewSessionID(),
	}
	glog.Infof("server instance %s, event backend %s", s.instance, p.Name())
	return s, nil
}

// Listen opens every configured listener. A stale Unix socket file is
// removed first.
func (s *Server) Listen() error {
	for _, lc := range s.cfg.Listener {
		if lc.Network == "unix" {
			if _, err := os.Stat(lc.Addr); err == nil {
				os.Remove(lc.Addr)
			}
		}
		ln, err := net.Listen(lc.Network, lc.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s %s: %w", lc.Network, lc.Addr, err)
		}
		if err = s.addListener(ln, lc.Network); err != nil {
			ln.Close()
			return err
		}
		glog.Infof("listening on %s %s", lc.Network, ln.Addr())
	}
	return nil
}

func (s *Server) addListener(ln net.Listener, network string) error {
	fd, err := socketFd(ln)
	if err != nil {
		return err
	}
	if err = s.poller.Add(fd); err != nil {
		return err
	}
	s.listeners[fd] = &listener{ln: ln, fd: fd, network: network}
	return nil
}

// Addrs returns the bound listener addresses.
func (s *Server) Addrs() []net.Addr {
	var addrs []net.Addr
	for _, l := range s.listeners {
		addrs = append(addrs, l.ln.Addr())
	}
	return addrs
}

// Addr returns the first bound address of the given network.
func (s *Server) Addr(network string) net.Addr {
	for _, l := range s.listeners {
		if l.network == network {
			return l.ln.Addr()
		}
	}
	return nil
}

func (s *Server) Statistics() *stats.Statistics {
	return s.stats
}

// NotifyFieldChanged asks the loop to push the current value of the field
// to its subscribers. It is safe to call from any goroutine.
func (s *Server) NotifyFieldChanged(fieldID uint64) {
	s.mu.Lock()
	s.changed[fieldID] = struct{}{}
	s.mu.Unlock()
	s.waker.Wake()
}

// Serve runs the event loop until ctx is done, then closes every
// connection and listener.
func (s *Server) Serve(ctx context.Context) error {
	defer close(s.served)
	stop := context.AfterFunc(ctx, s.waker.Wake)
	defer stop()
	defer s.shutdown()

	interval := s.cfg.CallbackPollInterval.Duration
	nextPoll := time.Now().Add(interval)
	for ctx.Err() == nil {
		timeout := time.Until(nextPoll)
		if timeout < 0 {
			timeout = 0
		}
		fds, err := s.poller.Wait(timeout)
		if err != nil {
			return fmt.Errorf("%s wait: %w", s.poller.Name(), err)
		}
		s.ready(fds)
		if now := time.Now(); !now.Before(nextPoll) {
			if !s.cfg.DisableCallbackPoll {
				s.pollCallbacks()
			}
			nextPoll = now.Add(interval)
		}
	}
	return nil
}

// ready handles one batch of ready descriptors. A connection accepted
// while the batch is handled can reuse the fd of one closed earlier in
// the same batch, so its entry is skipped; the poller is level triggered
// and reports it again on the next wait.
func (s *Server) ready(fds []int) {
	s.waits++
	for _, fd := range fds {
		if fd == s.waker.Fd() {
			s.waker.Drain()
			s.processChanged()
			continue
		}
		if l, ok := s.listeners[fd]; ok {
			s.accept(l)
			continue
		}
		if c, ok := s.conns[fd]; ok && c.acceptedIn != s.waits {
			s.serveConn(c)
		}
	}
}

// Instance identifies this server run in logs.
func (s *Server) Instance() string {
	return s.instance
}

// Done is closed when Serve returns.
func (s *Server) Done() <-chan struct{} {
	return s.served
}

func (s *Server) shutdown() {
	for _, c := range s.conns {
		s.closeConn(c, "server shutdown")
	}
	for fd, l := range s.listeners {
		s.poller.Remove(fd)
		l.ln.Close()
		delete(s.listeners, fd)
	}
	s.waker.Close()
	s.poller.Close()
	glog.Infof("server stopped")
}

func (s *Server) reject(c net.Conn, network string, reason string) {
	atomic.AddUint64(&s.stats.NumRejected, 1)
	if otel.IsEnabled() {
		otel.RecordCount(otel.Reject, []otel.Tags{{TagName: otel.Network, TagValue: network}, {TagName: otel.Reason, TagValue: reason}})
	}
	b := logging.NewKVBufferForLog()
	b.AddRemote(remoteString(c)).AddReason(reason)
	glog.Warningf("connection rejected %s", b.String())
	c.Close()
}

// remoteString is empty for unnamed Unix domain peers.
func remoteString(c net.Conn) string {
	addr := c.RemoteAddr()
	if addr == nil {
		return ""
	}
	if s := addr.String(); s != "@" && s != "<nil>" {
		return s
	}
	return ""
}

// accept takes one pending connection from l.
func (s *Server) accept(l *listener) {
	nc, err := l.ln.Accept()
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return
		}
		glog.Warningf("accept on %s: %s", l.ln.Addr(), err)
		return
	}
	if len(s.conns) >= s.cfg.MaxConnections {
		s.reject(nc, l.network, "too many connections")
		return
	}
	var creds *Credentials
	if uc, ok := nc.(*net.UnixConn); ok {
		uc.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout.Duration))
		if creds, err = readUnixCredentials(uc); err != nil {
			s.reject(nc, l.network, "no credentials: "+err.Error())
			return
		}
	} else if !s.acl.Allowed(nc.RemoteAddr()) {
		s.reject(nc, l.network, "address not allowed")
		return
	}
	fd, err := socketFd(nc)
	if err == nil {
		err = s.poller.Add(fd)
	}
	if err != nil {
		s.reject(nc, l.network, err.Error())
		return
	}

	s.lastID++
	c := &Connection{
		id:      s.lastID,
		session: util.NewSessionID(),
		conn:    nc,
		fd:      fd,
		network: l.network,
		raddr:   remoteString(nc),
		opened:  time.Now(),
		state:   StateAccepted,
		creds:   creds,
		inbuf:   proto.NewBuffer(s.cfg.InitialBufferSize, s.cfg.BufferLimit),
		outbuf:  proto.NewBuffer(s.cfg.InitialBufferSize, s.cfg.BufferLimit),
		outbox:  queue.New(),

		acceptedIn: s.waits,
	}
	if c.raddr == "" {
		c.raddr = l.network + ":" + l.ln.Addr().String()
	}
	c.SetFormat(s.format, s.cfg.DisplayPrecision)
	s.conns[fd] = c
	s.byID[c.id] = c
	c.state = StateAwaitingHeader

	atomic.AddUint64(&s.stats.NumAccepted, 1)
	atomic.StoreUint32(&s.stats.NumConns, uint32(len(s.conns)))
	if otel.IsEnabled() {
		otel.RecordCount(otel.Accept, []otel.Tags{{TagName: otel.Network, TagValue: l.network}})
	}
	if glog.LOG_INFO {
		glog.Infof("connection accepted %s", c.logOpen())
	}
}

// serveConn reads and answers one request of a readable connection.
func (s *Server) serveConn(c *Connection) {
	c.state = StateAwaitingHeader
	c.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout.Duration))
	var msg proto.RawMessage
	if _, err := msg.Read(c.conn, c.inbuf); err != nil {
		if !proto.IsStatusError(err) {
			s.closeConn(c, err.Error())
			return
		}
		// the body was drained, so the stream is still in sync
		reply := proto.Header{
			HeaderLen: c.headerLen(),
			Type:      msg.Type.Response(),
			MessageID: msg.MessageID,
		}
		st := s.reply(c, &reply, nil, err)
		s.stats.Put(msg.Type, 0, st)
	} else {
		s.dispatch(c, &msg)
		atomic.StoreUint32(&s.stats.NumCallbacks, uint32(s.callbacks.Len()))
	}
	if err := c.flush(s.cfg.WriteTimeout.Duration); err != nil {
		s.closeConn(c, err.Error())
		return
	}
	c.state = StateAwaitingHeader
}

// closeConn tears c down and drops its subscriptions.
func (s *Server) closeConn(c *Connection, reason string) {
	if c.state == StateClosing {
		return
	}
	c.state = StateClosing
	s.poller.Remove(c.fd)
	c.conn.Close()
	delete(s.conns, c.fd)
	delete(s.byID, c.id)
	freed := s.callbacks.RemoveConnection(c.id)
	c.inbuf.Release()
	c.outbuf.Release()

	atomic.StoreUint32(&s.stats.NumConns, uint32(len(s.conns)))
	atomic.StoreUint32(&s.stats.NumCallbacks, uint32(s.callbacks.Len()))
	if otel.IsEnabled() {
		otel.RecordCount(otel.Close, []otel.Tags{{TagName: otel.Network, TagValue: c.network}})
	}
	if glog.LOG_INFO {
		glog.Infof("connection closed %s", c.logClose(reason))
	}
	if freed != 0 {
		glog.Debugf("conn %d: %d callbacks freed", c.id, freed)
	}
}

func (s *Server) processChanged() {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.changed))
	for id := range s.changed {
		ids = append(ids, id)
	}
	s.changed = make(map[uint64]struct{})
	s.mu.Unlock()

	for _, id := range ids {
		if f, ok := s.engine.Directory().FieldByID(id); ok {
			s.checkField(f, true)
		}
	}
}

// pollCallbacks checks every pollable field that has callbacks.
func (s *Server) pollCallbacks() {
	for _, id := range s.callbacks.Fields() {
		f, ok := s.engine.Directory().FieldByID(id)
		if !ok || !f.Flags().Has(record.FlagPollable) {
			continue
		}
		s.checkField(f, false)
	}
}

// checkField reads f and pushes the value to the subscribers of every
// callback whose last pushed value differs by more than the field's
// threshold. With force set the value is pushed unconditionally.
func (s *Server) checkField(f *record.Field, force bool) {
	cbs := s.callbacks.ForField(f.ID)
	if len(cbs) == 0 {
		return
	}
	v, err := f.Read()
	if err != nil {
		glog.Warningf("callback poll: %s: %s", f.FullName(), err)
		return
	}
	threshold := f.Threshold()
	due := make(map[*callback.Callback]bool, len(cbs))
	for _, cb := range cbs {
		if force || v.Differs(cb.LastValue, threshold) {
			cb.LastValue = v.Clone()
			due[cb] = true
		}
	}
	if len(due) == 0 {
		return
	}

	touched := make(map[*Connection]bool)
	s.callbacks.Notify(f.ID, func(cb *callback.Callback, connID uint64) {
		if !due[cb] {
			return
		}
		c, ok := s.byID[connID]
		if !ok {
			return
		}
		if s.push(c, cb, f, v) {
			touched[c] = true
		}
	})
	for c := range touched {
		if err := c.flush(s.cfg.WriteTimeout.Duration); err != nil {
			s.closeConn(c, err.Error())
		}
	}
}

// push queues one callback message on c. Pushes beyond MaxPendingPushes
// are dropped.
func (s *Server) push(c *Connection, cb *callback.Callback, f *record.Field, v *proto.Value) bool {
	if c.pending() >= s.cfg.MaxPendingPushes {
		c.numDropped++
		glog.Warningf("conn %d: callback %d dropped, %d messages pending", c.id, cb.ID, c.pending())
		return false
	}
	h := proto.Header{
		HeaderLen: c.headerLen(),
		Type:      proto.MsgCallback.Response(),
		DataType:  f.Type,
		MessageID: proto.CallbackBit | uint32(cb.ID),
	}
	if err := c.enqueue(&h, proto.ValueEncoder(c.codec, v)); err != nil {
		glog.Warningf("conn %d: callback %d for %s: %s", c.id, cb.ID, f.FullName(), err)
		return false
	}
	c.numPushes++
	atomic.AddUint64(&s.stats.NumPushes, 1)
	if otel.IsEnabled() {
		otel.RecordCount(otel.CallbackPush, nil)
	}
	return true
}
