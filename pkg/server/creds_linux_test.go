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

//go:build linux

package server

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// peerCredentials returns what the kernel recorded for the peer of c at
// connect time, translated into this process's namespaces.
func peerCredentials(t *testing.T, c *net.UnixConn) *unix.Ucred {
	t.Helper()
	raw, err := c.SyscallConn()
	if err != nil {
		t.Fatal(err)
	}
	var ucred *unix.Ucred
	var serr error
	if err = raw.Control(func(fd uintptr) {
		ucred, serr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err == nil {
		err = serr
	}
	if err != nil {
		t.Fatalf("SO_PEERCRED: %s", err)
	}
	return ucred
}

func TestReadUnixCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.sock")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cc, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	defer cc.Close()
	sc, err := ln.AcceptUnix()
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()

	if _, err = cc.Write([]byte{0}); err != nil {
		t.Fatal(err)
	}
	sc.SetReadDeadline(time.Now().Add(3 * time.Second))
	creds, err := readUnixCredentials(sc)
	if err != nil {
		t.Fatalf("readUnixCredentials: %s", err)
	}
	if creds == nil {
		t.Fatalf("no credentials")
	}
	want := peerCredentials(t, sc)
	if creds.Pid != want.Pid || creds.Uid != want.Uid || creds.Gid != want.Gid {
		t.Errorf("credentials %+v, peer %+v", *creds, *want)
	}
}

func TestReadUnixCredentialsClosedPeer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.sock")
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	cc, err := net.Dial("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	sc, err := ln.AcceptUnix()
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()
	cc.Close()

	sc.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, err = readUnixCredentials(sc); err == nil {
		t.Errorf("credentials read from a closed peer")
	}
}
