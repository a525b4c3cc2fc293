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
	"context"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eapache/queue"

	"github.com/nbeaver/mx-trunk-sub019/pkg/acl"
	"github.com/nbeaver/mx-trunk-sub019/pkg/client"
	"github.com/nbeaver/mx-trunk-sub019/pkg/poller"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
	"github.com/nbeaver/mx-trunk-sub019/pkg/util"
)

const testDatabase = `
[[Record]]
Name = "m1"
Class = "soft_motor"
  [[Record.Field]]
  Name = "position"
  Type = "double"
  Value = "1.25"
  [[Record.Field]]
  Name = "temperature"
  Type = "double"
  Flags = ["pollable"]
  Threshold = 0.5
  Value = "20"
  [[Record.Field]]
  Name = "units"
  Type = "string"
  Dims = [16]
  Flags = ["read_only"]
  Value = "mm"
  [[Record.Field]]
  Name = "secret"
  Type = "long"
  Flags = ["no_access"]
  Value = "7"
  [[Record.Field]]
  Name = "counts"
  Type = "long"
  Dims = [3]
  Value = "1 2 3"

[[Record]]
Name = "t"
  [[Record.Field]]
  Name = "s"
  Type = "string"
  Dims = [32]
  [[Record.Field]]
  Name = "sa"
  Type = "string"
  Dims = [2, 16]
  [[Record.Field]]
  Name = "c"
  Type = "char"
  [[Record.Field]]
  Name = "uc"
  Type = "uchar"
  [[Record.Field]]
  Name = "sh"
  Type = "short"
  [[Record.Field]]
  Name = "ush"
  Type = "ushort"
  [[Record.Field]]
  Name = "b"
  Type = "bool"
  Dims = [2]
  [[Record.Field]]
  Name = "l"
  Type = "long"
  Dims = [3]
  [[Record.Field]]
  Name = "ul"
  Type = "ulong"
  [[Record.Field]]
  Name = "f"
  Type = "float"
  [[Record.Field]]
  Name = "d"
  Type = "double"
  [[Record.Field]]
  Name = "d2"
  Type = "double"
  Dims = [2, 3]
  [[Record.Field]]
  Name = "h"
  Type = "hex"
  [[Record.Field]]
  Name = "i64"
  Type = "int64"
  [[Record.Field]]
  Name = "u64"
  Type = "uint64"
  [[Record.Field]]
  Name = "big"
  Type = "double"
  Dims = [600]
`

// token text of a value for every field of record t
var roundTripValues = map[string]string{
	"t.s":   `"beam stop"`,
	"t.sa":  `alpha "two words"`,
	"t.c":   `z`,
	"t.uc":  `\x07`,
	"t.sh":  `-1234`,
	"t.ush": `65000`,
	"t.b":   `1 0`,
	"t.l":   `-5 0 2147483647`,
	"t.ul":  `4000000000`,
	"t.f":   `3.25`,
	"t.d":   `-1e-300`,
	"t.d2":  `1 2 3 4 5 6.5`,
	"t.h":   `0xdeadbeef`,
	"t.i64": `-9000000000000`,
	"t.u64": `18446744073709551615`,
}

type testServer struct {
	*Server
	dir *record.Directory
}

func startServer(t *testing.T, mod func(*Config)) *testServer {
	t.Helper()
	dir := record.NewDirectory(0)
	if err := record.LoadDatabase(testDatabase, dir); err != nil {
		t.Fatalf("LoadDatabase: %s", err)
	}
	cfg := Config{
		Listener: []ListenerConfig{
			{Network: "tcp", Addr: "127.0.0.1:0"},
			{Network: "unix", Addr: filepath.Join(t.TempDir(), "mx.sock")},
		},
		CallbackPollInterval: util.Duration{Duration: 20 * time.Millisecond},
	}
	if mod != nil {
		mod(&cfg)
	}
	s, err := New(cfg, dir, nil, nil)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	if err = s.Listen(); err != nil {
		t.Fatalf("Listen: %s", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return &testServer{Server: s, dir: dir}
}

func (s *testServer) dial(t *testing.T, network string, opts ...client.IOption) client.IClient {
	t.Helper()
	cli, err := client.Dial(network, s.Addr(network).String(), opts...)
	if err != nil {
		t.Fatalf("Dial %s: %s", network, err)
	}
	t.Cleanup(func() { cli.Close() })
	return cli
}

func parseValue(t *testing.T, f *client.Field, text string) *proto.Value {
	t.Helper()
	v, err := proto.ParseTokens(proto.NewTokenizer(text), f.Type, f.Dims)
	if err != nil {
		t.Fatalf("%s: parse %q: %s", f.Name, text, err)
	}
	return v
}

func expectStatus(t *testing.T, what string, err error, st proto.Status) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: no error, expected %s", what, st)
	}
	if got := proto.StatusOf(err); got != st {
		t.Fatalf("%s: status %s (%s), expected %s", what, got, err, st)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRoundTripAllFormats(t *testing.T) {
	s := startServer(t, nil)
	for _, format := range []string{"token", "raw", "portable"} {
		for _, long64 := range []bool{false, true} {
			cli := s.dial(t, "tcp", client.WithFormat(format), client.WithLong64(long64))
			for name, text := range roundTripValues {
				f, err := cli.Field(name)
				if err != nil {
					t.Fatalf("Field(%s): %s", name, err)
				}
				want := parseValue(t, f, text)
				if err = cli.Put(name, want); err != nil {
					t.Fatalf("%s long64=%v: Put(%s): %s", format, long64, name, err)
				}
				got, err := cli.Get(name)
				if err != nil {
					t.Fatalf("%s long64=%v: Get(%s): %s", format, long64, name, err)
				}
				if !got.Equal(want) {
					t.Errorf("%s long64=%v: %s by name: got %s, want %s", format, long64, name, got, want)
				}
				if err = cli.PutByHandle(f, want); err != nil {
					t.Fatalf("%s: PutByHandle(%s): %s", format, name, err)
				}
				if got, err = cli.GetByHandle(f); err != nil {
					t.Fatalf("%s: GetByHandle(%s): %s", format, name, err)
				}
				if !got.Equal(want) {
					t.Errorf("%s long64=%v: %s by handle: got %s, want %s", format, long64, name, got, want)
				}
			}
		}
	}
}

func TestHandleStability(t *testing.T) {
	s := startServer(t, nil)
	c1 := s.dial(t, "tcp")
	c2 := s.dial(t, "unix")

	rh1, fh1, err := c1.NetworkHandle("m1.units")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		rh, fh, err := c1.NetworkHandle("m1.units")
		if err != nil || rh != rh1 || fh != fh1 {
			t.Fatalf("repeat %d: (%d, %d, %v), first (%d, %d)", i, rh, fh, err, rh1, fh1)
		}
	}
	if rh, fh, _ := c2.NetworkHandle("m1.units"); rh != rh1 || fh != fh1 {
		t.Errorf("second connection got (%d, %d), first (%d, %d)", rh, fh, rh1, fh1)
	}
	if rh1 == 0 || fh1 != 2 {
		t.Errorf("handles (%d, %d)", rh1, fh1)
	}
	rhPos, fhPos, _ := c1.NetworkHandle("m1.position")
	if rhPos != rh1 || fhPos != 0 {
		t.Errorf("m1.position handles (%d, %d)", rhPos, fhPos)
	}
	rhT, _, _ := c1.NetworkHandle("t.d")
	if rhT == rh1 || rhT == 0 {
		t.Errorf("record t got handle %d, m1 has %d", rhT, rh1)
	}

	_, _, err = c1.NetworkHandle("m1.nothing")
	expectStatus(t, "unknown field", err, proto.StatusNotFound)
	_, _, err = c1.NetworkHandle("nodot")
	expectStatus(t, "bad name", err, proto.StatusIllegalArgument)

	_, err = c1.GetByHandle(&client.Field{Name: "bad", Type: proto.TypeDouble, RecordHandle: rh1, FieldHandle: 99})
	expectStatus(t, "field handle out of range", err, proto.StatusBadHandle)
	_, err = c1.GetByHandle(&client.Field{Name: "bad", Type: proto.TypeDouble, RecordHandle: 999, FieldHandle: 0})
	expectStatus(t, "unknown record handle", err, proto.StatusBadHandle)
}

func TestCallbackFanOut(t *testing.T) {
	s := startServer(t, nil)
	c1 := s.dial(t, "tcp")
	c2 := s.dial(t, "unix")
	c3 := s.dial(t, "tcp", client.WithFormat("token"))

	var ids []uint32
	for _, c := range []client.IClient{c1, c2} {
		f, err := c.Field("m1.position")
		if err != nil {
			t.Fatal(err)
		}
		id, err := c.AddCallback(f)
		if err != nil {
			t.Fatalf("AddCallback: %s", err)
		}
		ids = append(ids, id)
	}
	if ids[0] != ids[1] || ids[0] == 0 {
		t.Errorf("callback ids %v", ids)
	}

	f3, _ := c3.Field("m1.position")
	if err := c3.Put("m1.position", parseValue(t, f3, "8.5")); err != nil {
		t.Fatal(err)
	}
	for i, c := range []client.IClient{c1, c2} {
		cb, err := c.WaitCallback(2 * time.Second)
		if err != nil {
			t.Fatalf("client %d: %s", i+1, err)
		}
		if cb.ID != ids[0] || cb.Field.Name != "m1.position" {
			t.Errorf("client %d: callback %d for %s", i+1, cb.ID, cb.Field.Name)
		}
		if x := cb.Value.Data.([]float64)[0]; x != 8.5 {
			t.Errorf("client %d: pushed %g", i+1, x)
		}
		if _, err = c.WaitCallback(200 * time.Millisecond); err != client.ErrNoCallback {
			t.Errorf("client %d: second callback: %v", i+1, err)
		}
	}
	if _, err := c3.WaitCallback(100 * time.Millisecond); err != client.ErrNoCallback {
		t.Errorf("writer received a callback: %v", err)
	}
	if n := atomic.LoadUint64(&s.Statistics().NumPushes); n != 2 {
		t.Errorf("%d pushes", n)
	}
}

func TestDeleteCallback(t *testing.T) {
	s := startServer(t, nil)
	c1 := s.dial(t, "tcp")
	c2 := s.dial(t, "tcp")
	c3 := s.dial(t, "tcp")

	f1, _ := c1.Field("m1.position")
	id, err := c1.AddCallback(f1)
	if err != nil {
		t.Fatal(err)
	}
	f2, _ := c2.Field("m1.position")
	if _, err = c2.AddCallback(f2); err != nil {
		t.Fatal(err)
	}
	if err = c1.DeleteCallback(id); err != nil {
		t.Fatalf("DeleteCallback: %s", err)
	}
	expectStatus(t, "second delete", c1.DeleteCallback(id), proto.StatusIllegalArgument)
	expectStatus(t, "unknown callback", c1.DeleteCallback(4242), proto.StatusNotFound)

	f3, _ := c3.Field("m1.position")
	if err = c3.Put("m1.position", parseValue(t, f3, "-3")); err != nil {
		t.Fatal(err)
	}
	if cb, err := c2.WaitCallback(2 * time.Second); err != nil || cb.ID != id {
		t.Fatalf("subscriber: %v %v", cb, err)
	}
	if _, err = c1.WaitCallback(200 * time.Millisecond); err != client.ErrNoCallback {
		t.Errorf("unsubscribed client: %v", err)
	}
	if n := atomic.LoadUint32(&s.Statistics().NumCallbacks); n != 1 {
		t.Errorf("%d callbacks", n)
	}
}

func TestDisconnectCleanup(t *testing.T) {
	s := startServer(t, nil)
	c1 := s.dial(t, "tcp")
	c2 := s.dial(t, "tcp")
	c3 := s.dial(t, "tcp")

	for _, name := range []string{"m1.position", "m1.counts"} {
		f, _ := c1.Field(name)
		if _, err := c1.AddCallback(f); err != nil {
			t.Fatal(err)
		}
	}
	f2, _ := c2.Field("m1.position")
	if _, err := c2.AddCallback(f2); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadUint32(&s.Statistics().NumCallbacks); n != 2 {
		t.Fatalf("%d callbacks before disconnect", n)
	}

	c1.Close()
	waitFor(t, "callback of the closed connection to be freed", func() bool {
		return atomic.LoadUint32(&s.Statistics().NumCallbacks) == 1
	})
	waitFor(t, "connection count", func() bool {
		return atomic.LoadUint32(&s.Statistics().NumConns) == 2
	})

	f3, _ := c3.Field("m1.position")
	if err := c3.Put("m1.position", parseValue(t, f3, "11")); err != nil {
		t.Fatal(err)
	}
	if _, err := c2.WaitCallback(2 * time.Second); err != nil {
		t.Fatalf("remaining subscriber: %s", err)
	}
}

func TestOversizedReplyGrowsOnce(t *testing.T) {
	s := startServer(t, func(cfg *Config) {
		cfg.InitialBufferSize = 64
	})
	cli := s.dial(t, "tcp")
	f, err := cli.Field("t.big")
	if err != nil {
		t.Fatal(err)
	}
	want := parseValue(t, f, strings.Repeat("1.5 ", 599)+"-2")
	if err = cli.Put("t.big", want); err != nil {
		t.Fatalf("Put: %s", err)
	}

	before := s.replyGrows.Load()
	got, err := cli.Get("t.big")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}
	if !got.Equal(want) {
		t.Errorf("reply truncated or corrupted: %d elements", got.Len())
	}
	if n := s.replyGrows.Load() - before; n != 1 {
		t.Errorf("reply buffer grew %d times", n)
	}

	before = s.replyGrows.Load()
	if _, err = cli.Get("t.big"); err != nil {
		t.Fatal(err)
	}
	if n := s.replyGrows.Load() - before; n != 0 {
		t.Errorf("second reply grew the buffer %d times", n)
	}
}

func TestBufferLimitKeepsConnection(t *testing.T) {
	s := startServer(t, func(cfg *Config) {
		cfg.BufferLimit = 2048
	})
	cli := s.dial(t, "tcp")
	f, err := cli.Field("t.big")
	if err != nil {
		t.Fatal(err)
	}
	_, err = cli.Get("t.big")
	expectStatus(t, "oversized reply", err, proto.StatusWouldExceedLimit)

	err = cli.Put("t.big", parseValue(t, f, strings.Repeat("3 ", 600)))
	expectStatus(t, "oversized request", err, proto.StatusWouldExceedLimit)

	v, err := cli.Get("m1.position")
	if err != nil {
		t.Fatalf("connection not usable after oversized messages: %s", err)
	}
	if x := v.Data.([]float64)[0]; x != 1.25 {
		t.Errorf("m1.position %g", x)
	}
}

func TestBadMagicClosesOnlyThatConnection(t *testing.T) {
	s := startServer(t, nil)
	good := s.dial(t, "tcp")

	bad, err := net.Dial("tcp", s.Addr("tcp").String())
	if err != nil {
		t.Fatal(err)
	}
	defer bad.Close()
	garbage := make([]byte, proto.HeaderSize)
	copy(garbage, "GET / HTTP/1.0\r\n")
	bad.Write(garbage)
	bad.SetReadDeadline(time.Now().Add(3 * time.Second))
	var b [1]byte
	if _, err = bad.Read(b[:]); err == nil {
		t.Fatalf("connection with a bad magic number was answered")
	}
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		t.Fatalf("connection with a bad magic number was not closed")
	}

	if _, err = good.Get("m1.position"); err != nil {
		t.Fatalf("other connection broken: %s", err)
	}
}

func TestPutReadOnlyField(t *testing.T) {
	s := startServer(t, nil)
	for _, format := range []string{"token", "raw", "portable"} {
		cli := s.dial(t, "tcp", client.WithFormat(format))
		f, err := cli.Field("m1.units")
		if err != nil {
			t.Fatal(err)
		}
		err = cli.Put("m1.units", parseValue(t, f, "cm"))
		expectStatus(t, format+" put by name", err, proto.StatusPermissionDenied)
		err = cli.PutByHandle(f, parseValue(t, f, "km"))
		expectStatus(t, format+" put by handle", err, proto.StatusPermissionDenied)

		v, err := cli.Get("m1.units")
		if err != nil {
			t.Fatal(err)
		}
		if got := v.Data.([]string)[0]; got != "mm" {
			t.Errorf("%s: read only field changed to %q", format, got)
		}
	}
}

func TestNoAccessAndAttributes(t *testing.T) {
	s := startServer(t, nil)
	cli := s.dial(t, "tcp")

	_, err := cli.Get("m1.secret")
	expectStatus(t, "get no access", err, proto.StatusPermissionDenied)
	err = cli.SetAttribute("m1.secret", proto.AttrValueChangeThreshold, 1)
	expectStatus(t, "set attribute of no access field", err, proto.StatusPermissionDenied)
	if x, err := cli.GetAttribute("m1.secret", proto.AttrNoAccess); err != nil || x != 1 {
		t.Errorf("NoAccess attribute %g %v", x, err)
	}

	if x, err := cli.GetAttribute("m1.temperature", proto.AttrValueChangeThreshold); err != nil || x != 0.5 {
		t.Errorf("threshold %g %v", x, err)
	}
	if err = cli.SetAttribute("m1.temperature", proto.AttrValueChangeThreshold, 2); err != nil {
		t.Fatal(err)
	}
	if x, _ := cli.GetAttribute("m1.temperature", proto.AttrValueChangeThreshold); x != 2 {
		t.Errorf("threshold after set %g", x)
	}
	if x, _ := cli.GetAttribute("m1.temperature", proto.AttrPollable); x != 1 {
		t.Errorf("pollable %g", x)
	}
	if err = cli.SetAttribute("m1.temperature", proto.AttrPollable, 0); err != nil {
		t.Fatal(err)
	}
	if x, _ := cli.GetAttribute("m1.temperature", proto.AttrPollable); x != 0 {
		t.Errorf("pollable after clear %g", x)
	}
	err = cli.SetAttribute("m1.units", proto.AttrReadOnly, 0)
	expectStatus(t, "clear read only", err, proto.StatusPermissionDenied)
	_, err = cli.GetAttribute("m1.units", proto.AttributeNumber(9))
	expectStatus(t, "unknown attribute", err, proto.StatusIllegalArgument)
}

func TestOptions(t *testing.T) {
	s := startServer(t, nil)
	cli := s.dial(t, "tcp", client.WithFormat("portable"))

	expect := map[proto.OptionNumber]uint32{
		proto.OptionDataFormat:       uint32(proto.FormatPortable),
		proto.OptionNativeDataFormat: proto.NativeByteOrder(),
		proto.OptionLong64:           0,
		proto.OptionWordSize:         proto.WordSize,
		proto.OptionClientVersion:    proto.CurrentVersion,
	}
	for opt, want := range expect {
		if got, err := cli.GetOption(opt); err != nil || got != want {
			t.Errorf("option %d: %d %v, want %d", opt, got, err, want)
		}
	}
	if err := cli.SetOption(proto.OptionClientVersionTime, 1700000000); err != nil {
		t.Fatal(err)
	}
	if got, _ := cli.GetOption(proto.OptionClientVersionTime); got != 1700000000 {
		t.Errorf("version time %d", got)
	}
	_, err := cli.GetOption(proto.OptionNumber(99))
	expectStatus(t, "get illegal option", err, proto.StatusIllegalArgument)
	err = cli.SetOption(proto.OptionNumber(99), 1)
	expectStatus(t, "set illegal option", err, proto.StatusIllegalArgument)
	err = cli.SetFormat(proto.DataFormat(7))
	expectStatus(t, "unknown format", err, proto.StatusUnsupported)
	if got, _ := cli.GetOption(proto.OptionDataFormat); got != uint32(proto.FormatPortable) {
		t.Errorf("format changed to %d by a failed set", got)
	}
}

func TestLegacyClient(t *testing.T) {
	s := startServer(t, nil)
	cli := s.dial(t, "tcp", client.WithLegacyHeader())
	f, err := cli.Field("m1.counts")
	if err != nil {
		t.Fatal(err)
	}
	v, err := cli.GetByHandle(f)
	if err != nil {
		t.Fatalf("GetByHandle: %s", err)
	}
	if got := v.Data.([]int64); len(got) != 3 || got[2] != 3 {
		t.Errorf("counts %v", got)
	}
	_, err = cli.AddCallback(f)
	expectStatus(t, "legacy callback", err, proto.StatusUnsupported)
}

func TestCallbacksDisabled(t *testing.T) {
	s := startServer(t, func(cfg *Config) {
		cfg.DisableCallbackPoll = true
	})
	cli := s.dial(t, "tcp")
	f, _ := cli.Field("m1.position")
	_, err := cli.AddCallback(f)
	expectStatus(t, "add callback", err, proto.StatusNotValidForCurrentState)
	if _, err = cli.Get("m1.position"); err != nil {
		t.Errorf("connection unusable: %s", err)
	}
}

func TestNotifyFieldChanged(t *testing.T) {
	s := startServer(t, nil)
	cli := s.dial(t, "tcp")
	cf, _ := cli.Field("m1.position")
	if _, err := cli.AddCallback(cf); err != nil {
		t.Fatal(err)
	}

	f, err := s.dir.Resolve("m1.position")
	if err != nil {
		t.Fatal(err)
	}
	f.Accessor().(*record.Soft).Set(&proto.Value{Type: proto.TypeDouble, Data: []float64{42}})
	s.NotifyFieldChanged(f.ID)

	cb, err := cli.WaitCallback(2 * time.Second)
	if err != nil {
		t.Fatalf("WaitCallback: %s", err)
	}
	if x := cb.Value.Data.([]float64)[0]; x != 42 {
		t.Errorf("pushed %g", x)
	}
}

func TestPollThreshold(t *testing.T) {
	s := startServer(t, nil)
	cli := s.dial(t, "unix")
	cf, _ := cli.Field("m1.temperature")
	if _, err := cli.AddCallback(cf); err != nil {
		t.Fatal(err)
	}
	f, _ := s.dir.Resolve("m1.temperature")
	soft := f.Accessor().(*record.Soft)

	soft.Set(&proto.Value{Type: proto.TypeDouble, Data: []float64{20.2}})
	if _, err := cli.WaitCallback(300 * time.Millisecond); err != client.ErrNoCallback {
		t.Fatalf("change below threshold pushed: %v", err)
	}
	soft.Set(&proto.Value{Type: proto.TypeDouble, Data: []float64{21}})
	cb, err := cli.WaitCallback(2 * time.Second)
	if err != nil {
		t.Fatalf("change above threshold: %s", err)
	}
	if x := cb.Value.Data.([]float64)[0]; x != 21 {
		t.Errorf("pushed %g", x)
	}
}

func TestAccessControl(t *testing.T) {
	list, err := acl.Parse(strings.NewReader("# lab network only\n10.0.0.0/8\n"))
	if err != nil {
		t.Fatal(err)
	}
	dir := record.NewDirectory(0)
	record.LoadDatabase(testDatabase, dir)
	cfg := Config{Listener: []ListenerConfig{
		{Network: "tcp", Addr: "127.0.0.1:0"},
		{Network: "unix", Addr: filepath.Join(t.TempDir(), "acl.sock")},
	}}
	s, err := New(cfg, dir, nil, list)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Listen(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx)
	defer func() {
		cancel()
		<-s.Done()
	}()

	if cli, err := client.Dial("tcp", s.Addr("tcp").String()); err == nil {
		cli.Close()
		t.Fatalf("client outside the allow list was served")
	}
	cli, err := client.Dial("unix", s.Addr("unix").String())
	if err != nil {
		t.Fatalf("unix client: %s", err)
	}
	cli.Close()
	if n := atomic.LoadUint64(&s.Statistics().NumRejected); n != 1 {
		t.Errorf("%d rejected", n)
	}
}

func TestMaxConnections(t *testing.T) {
	s := startServer(t, func(cfg *Config) {
		cfg.MaxConnections = 1
	})
	s.dial(t, "tcp")
	if cli, err := client.Dial("tcp", s.Addr("tcp").String()); err == nil {
		cli.Close()
		t.Fatalf("connection past the limit was served")
	}
}

func TestSelectBackend(t *testing.T) {
	s := startServer(t, func(cfg *Config) {
		cfg.EventBackend = poller.BackendSelect
	})
	c1 := s.dial(t, "tcp", client.WithFormat("token"))
	c2 := s.dial(t, "unix", client.WithFormat("portable"))

	f1, _ := c1.Field("m1.counts")
	if _, err := c1.AddCallback(f1); err != nil {
		t.Fatal(err)
	}
	f2, _ := c2.Field("m1.counts")
	if err := c2.Put("m1.counts", parseValue(t, f2, "7 8 9")); err != nil {
		t.Fatal(err)
	}
	cb, err := c1.WaitCallback(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got := cb.Value.Data.([]int64); got[0] != 7 || got[2] != 9 {
		t.Errorf("pushed %v", got)
	}
}

func TestTokenGetOfUnquotableString(t *testing.T) {
	s := startServer(t, nil)
	raw := s.dial(t, "tcp", client.WithFormat("raw"))
	tok := s.dial(t, "tcp", client.WithFormat("token"))
	for _, str := range []string{`"x`, `a" b`} {
		v := &proto.Value{Type: proto.TypeString, Dims: []int{32}, Data: []string{str}}
		if err := raw.Put("t.s", v); err != nil {
			t.Fatalf("raw Put(%q): %s", str, err)
		}
		_, err := tok.Get("t.s")
		expectStatus(t, "token get of "+str, err, proto.StatusIllegalArgument)

		got, err := raw.Get("t.s")
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(v) {
			t.Errorf("raw get: got %s, want %s", got, v)
		}
	}
	if _, err := tok.Get("m1.position"); err != nil {
		t.Errorf("token connection unusable: %s", err)
	}
}

func TestReadySkipsConnectionAcceptedInBatch(t *testing.T) {
	cfg := Config{
		Listener:    []ListenerConfig{{Network: "unix", Addr: filepath.Join(t.TempDir(), "mx.sock")}},
		ReadTimeout: util.Duration{Duration: 20 * time.Millisecond},
	}
	s, err := New(cfg, record.NewDirectory(0), nil, nil)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	defer s.shutdown()

	sc, peer := net.Pipe()
	defer peer.Close()
	const fd = 1 << 20
	c := &Connection{
		id:         1,
		conn:       sc,
		fd:         fd,
		network:    "tcp",
		opened:     time.Now(),
		state:      StateAwaitingHeader,
		inbuf:      proto.NewBuffer(256, 1<<20),
		outbuf:     proto.NewBuffer(256, 1<<20),
		outbox:     queue.New(),
		acceptedIn: s.waits + 1,
	}
	s.conns[fd] = c
	s.byID[c.id] = c

	// readiness reported for the fd before this connection owned it
	s.ready([]int{fd})
	if c.state == StateClosing || s.conns[fd] != c {
		t.Fatalf("connection served from the batch it was accepted in")
	}

	// next batch: the idle pipe times out and the connection is closed
	s.ready([]int{fd})
	if c.state != StateClosing {
		t.Errorf("connection not served in a later batch, state %v", c.state)
	}
	if _, ok := s.conns[fd]; ok {
		t.Errorf("closed connection still registered")
	}
}
