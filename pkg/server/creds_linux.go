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
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// readUnixCredentials reads the byte a Unix domain client sends right
// after connecting and returns the credentials the kernel attached to it.
// When the byte carries none, the peer credentials recorded at connect
// time are used.
func readUnixCredentials(c *net.UnixConn) (*Credentials, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return nil, err
	}
	var serr error
	if err = raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_PASSCRED, 1)
	}); err == nil {
		err = serr
	}
	if err != nil {
		return nil, fmt.Errorf("SO_PASSCRED: %w", err)
	}

	var b [1]byte
	oob := make([]byte, unix.CmsgSpace(unix.SizeofUcred))
	n, oobn, _, _, err := c.ReadMsgUnix(b[:], oob)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}
	if oobn > 0 {
		if msgs, perr := unix.ParseSocketControlMessage(oob[:oobn]); perr == nil {
			for i := range msgs {
				if ucred, uerr := unix.ParseUnixCredentials(&msgs[i]); uerr == nil {
					return &Credentials{Pid: ucred.Pid, Uid: ucred.Uid, Gid: ucred.Gid}, nil
				}
			}
		}
	}

	var ucred *unix.Ucred
	if err = raw.Control(func(fd uintptr) {
		ucred, serr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err == nil {
		err = serr
	}
	if err != nil {
		return nil, fmt.Errorf("SO_PEERCRED: %w", err)
	}
	return &Credentials{Pid: ucred.Pid, Uid: ucred.Uid, Gid: ucred.Gid}, nil
}
