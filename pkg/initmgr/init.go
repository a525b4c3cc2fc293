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

// Package initmgr runs registered initializers in weight order and
// finalizes them in reverse.
package initmgr

import (
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
)

var (
	mu           sync.Mutex
	initializers initEntriesT
)

type entryT struct {
	initializer IInitializer
	weight      int
	args        []interface{}
	initialized bool
	finalized   bool
}

type initEntriesT []*entryT

type IInitializer interface {
	Name() string
	Initialize(args ...interface{}) error
	Finalize()
}

func (rs initEntriesT) Len() int {
	return len(rs)
}

func (rs initEntriesT) Less(i, j int) bool {
	return rs[i].weight < rs[j].weight
}

func (rs initEntriesT) Swap(i, j int) {
	rs[i], rs[j] = rs[j], rs[i]
}

// Init runs every initializer not yet run. On the first failure the ones
// already initialized are finalized and the error is returned. Init may be
// called again after more initializers are registered.
func Init() error {
	signal.Ignore(syscall.SIGPIPE)

	mu.Lock()
	defer mu.Unlock()
	sort.Stable(initializers)
	for i, e := range initializers {
		if e.initialized {
			continue
		}
		name := e.initializer.Name()
		if err := e.initializer.Initialize(e.args...); err != nil {
			fmt.Fprintf(os.Stderr, "... [fail] initmgr.initialize %s\t (error: %s)\n", name, err)
			finalizeBackwardsFrom(i - 1)
			return fmt.Errorf("initialize %s: %w", name, err)
		}
		e.initialized = true
		fmt.Fprintf(os.Stderr, "... [ok]   initmgr.initialize %s\n", name)
	}
	return nil
}

func finalizeBackwardsFrom(i int) {
	for ; i >= 0; i-- {
		e := initializers[i]
		if !e.initialized || e.finalized {
			continue
		}
		e.finalized = true
		fmt.Fprintf(os.Stderr, "... initmgr.finalize %s\n", e.initializer.Name())
		e.initializer.Finalize()
	}
}

func Finalize() {
	mu.Lock()
	defer mu.Unlock()
	finalizeBackwardsFrom(len(initializers) - 1)
}

func Register(rc IInitializer, args ...interface{}) {
	mu.Lock()
	n := len(initializers)
	mu.Unlock()
	RegisterWithWeight(rc, n, args...)
}

func RegisterWithFuncs(initializeFunc func(args ...interface{}) error, finalizeFunc func(), args ...interface{}) {
	Register(NewInitializer(initializeFunc, finalizeFunc), args...)
}

func RegisterWithWeight(rc IInitializer, weight int, args ...interface{}) {
	mu.Lock()
	initializers = append(initializers, &entryT{initializer: rc, weight: weight, args: args})
	mu.Unlock()
}

// reset drops every registration. Tests only.
func reset() {
	mu.Lock()
	initializers = nil
	mu.Unlock()
}

type Initializer struct {
	name           string
	InitializeFunc func(args ...interface{}) error
	FinalizeFunc   func()
}

func (i *Initializer) Name() string {
	return i.name
}

func (i *Initializer) Initialize(args ...interface{}) error {
	if i.InitializeFunc != nil {
		return i.InitializeFunc(args...)
	}
	return nil
}

func (i *Initializer) Finalize() {
	if i.FinalizeFunc != nil {
		i.FinalizeFunc()
	}
}

// NewInitializer names the initializer after the package of initializeFunc.
func NewInitializer(initializeFunc func(args ...interface{}) error, finalizeFunc func()) IInitializer {
	name := runtime.FuncForPC(reflect.ValueOf(initializeFunc).Pointer()).Name()
	if i := strings.LastIndex(name, "."); i == -1 {
		name = "unknown package"
	} else {
		name = name[0:i]
	}
	return &Initializer{name, initializeFunc, finalizeFunc}
}
