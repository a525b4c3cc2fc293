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

package record

import (
	"sync"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

// Soft is an in-memory value store for one field.
type Soft struct {
	mu      sync.RWMutex
	value   *proto.Value
	onWrite func(f *Field, v *proto.Value)
}

// NewSoft creates a store holding initial, or the zero value of the
// field's shape when initial is nil.
func NewSoft(initial *proto.Value) *Soft {
	return &Soft{value: initial.Clone()}
}

// OnWrite installs a hook that runs after every successful client write.
func (s *Soft) OnWrite(fn func(f *Field, v *proto.Value)) {
	s.mu.Lock()
	s.onWrite = fn
	s.mu.Unlock()
}

func (s *Soft) Read(f *Field) (*proto.Value, error) {
	s.mu.RLock()
	v := s.value
	s.mu.RUnlock()
	if v == nil {
		return proto.NewValue(f.Type, f.Dims)
	}
	return v.Clone(), nil
}

func (s *Soft) Write(f *Field, v *proto.Value) error {
	c := v.Clone()
	c.Dims = append([]int(nil), f.Dims...)
	s.mu.Lock()
	s.value = c
	hook := s.onWrite
	s.mu.Unlock()
	if hook != nil {
		hook(f, c)
	}
	return nil
}

// Set changes the value from the device side.
func (s *Soft) Set(v *proto.Value) {
	s.mu.Lock()
	s.value = v.Clone()
	s.mu.Unlock()
}
