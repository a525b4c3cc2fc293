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

package poller

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/sys/unix"
)

const maxSelectFd = unix.FD_SETSIZE

// selectPoller rebuilds the descriptor set from the registered list on
// every call.
type selectPoller struct {
	fds map[int]struct{}
}

func newSelect() (Poller, error) {
	return &selectPoller{fds: make(map[int]struct{})}, nil
}

func (p *selectPoller) Name() string {
	return BackendSelect
}

func (p *selectPoller) Add(fd int) error {
	if fd < 0 || fd >= maxSelectFd {
		return fmt.Errorf("descriptor %d is outside the select range 0..%d", fd, maxSelectFd-1)
	}
	p.fds[fd] = struct{}{}
	return nil
}

func (p *selectPoller) Remove(fd int) error {
	if _, ok := p.fds[fd]; !ok {
		return ErrNotRegistered
	}
	delete(p.fds, fd)
	return nil
}

func (p *selectPoller) Wait(timeout time.Duration) ([]int, error) {
	var rset unix.FdSet
	rset.Zero()
	fds := make([]int, 0, len(p.fds))
	maxfd := -1
	for fd := range p.fds {
		rset.Set(fd)
		fds = append(fds, fd)
		if fd > maxfd {
			maxfd = fd
		}
	}
	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}
	n, err := unix.Select(maxfd+1, &rset, nil, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("select: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	sort.Ints(fds)
	ready := make([]int, 0, n)
	for _, fd := range fds {
		if rset.IsSet(fd) {
			ready = append(ready, fd)
		}
	}
	return ready, nil
}

func (p *selectPoller) Close() error {
	p.fds = nil
	return nil
}
