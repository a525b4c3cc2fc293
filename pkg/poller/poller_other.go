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

//go:build !linux

package poller

import (
	"fmt"
	"runtime"
)

var errUnsupported = fmt.Errorf("event backends are not available on %s", runtime.GOOS)

func newEpoll() (Poller, error) {
	return nil, errUnsupported
}

func newSelect() (Poller, error) {
	return nil, errUnsupported
}

type Waker struct{}

func NewWaker() (*Waker, error) {
	return nil, errUnsupported
}

func (w *Waker) Fd() int      { return -1 }
func (w *Waker) Wake()        {}
func (w *Waker) Drain()       {}
func (w *Waker) Close() error { return nil }
