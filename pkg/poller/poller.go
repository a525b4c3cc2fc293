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

// Package poller waits for read readiness on a set of file descriptors.
package poller

import (
	"fmt"
	"time"
)

const (
	BackendSelect = "select"
	BackendEpoll  = "epoll"
)

// Poller is level triggered: a descriptor with unread data is reported by
// every Wait until the data is consumed. It is not safe for concurrent use.
type Poller interface {
	Name() string
	Add(fd int) error
	Remove(fd int) error
	// Wait returns the ready descriptors, or none when the timeout expires
	// or the wait is interrupted. A negative timeout waits forever.
	Wait(timeout time.Duration) ([]int, error)
	Close() error
}

var ErrNotRegistered = fmt.Errorf("descriptor not registered")

// New returns the named backend. An empty name selects epoll.
func New(backend string) (Poller, error) {
	switch backend {
	case "", BackendEpoll:
		return newEpoll()
	case BackendSelect:
		return newSelect()
	}
	return nil, fmt.Errorf("unknown event backend '%s'", backend)
}
