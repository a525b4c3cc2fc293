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
	"sync"

	"golang.org/x/sys/unix"
)

// Waker interrupts a Wait from another goroutine. Its read end is
// registered with the poller like any other descriptor.
type Waker struct {
	r, w   int
	mu     sync.Mutex
	closed bool
}

func NewWaker() (*Waker, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	return &Waker{r: p[0], w: p[1]}, nil
}

func (w *Waker) Fd() int {
	return w.r
}

// Wake may be called from any goroutine. A full pipe already guarantees
// a wakeup, so EAGAIN is ignored.
func (w *Waker) Wake() {
	w.mu.Lock()
	if !w.closed {
		unix.Write(w.w, []byte{1})
	}
	w.mu.Unlock()
}

// Drain empties the pipe.
func (w *Waker) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (w *Waker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	unix.Close(w.w)
	return unix.Close(w.r)
}
