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

// Package record holds the records and fields that clients address, and
// the accessors that connect fields to their value stores.
package record

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

type Flags uint32

const (
	FlagNoAccess Flags = 1 << iota
	FlagReadOnly
	FlagPollable
)

var flagNames = map[string]Flags{
	"no_access": FlagNoAccess,
	"read_only": FlagReadOnly,
	"pollable":  FlagPollable,
}

func ParseFlag(name string) (Flags, bool) {
	f, ok := flagNames[strings.ToLower(name)]
	return f, ok
}

func (f Flags) Has(x Flags) bool {
	return f&x != 0
}

func (f Flags) String() string {
	var names []string
	for _, x := range []Flags{FlagNoAccess, FlagReadOnly, FlagPollable} {
		if f.Has(x) {
			for name, fl := range flagNames {
				if fl == x {
					names = append(names, name)
				}
			}
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// Accessor is the device side of a field. Implementations may block on
// hardware and must be safe for concurrent use.
type Accessor interface {
	Read(f *Field) (*proto.Value, error)
	Write(f *Field, v *proto.Value) error
}

var lastFieldID uint64

type Field struct {
	Name   string
	Index  int
	Type   proto.Datatype
	Dims   []int
	ID     uint64
	Record *Record

	acc Accessor

	mu        sync.RWMutex
	flags     Flags
	threshold float64
}

func (f *Field) FullName() string {
	return f.Record.Name + "." + f.Name
}

func (f *Field) Flags() Flags {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.flags
}

func (f *Field) SetFlag(x Flags, on bool) {
	f.mu.Lock()
	if on {
		f.flags |= x
	} else {
		f.flags &^= x
	}
	f.mu.Unlock()
}

func (f *Field) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

func (f *Field) SetThreshold(x float64) {
	f.mu.Lock()
	f.threshold = x
	f.mu.Unlock()
}

func (f *Field) Accessor() Accessor {
	return f.acc
}

// Read fetches the current value through the accessor.
func (f *Field) Read() (*proto.Value, error) {
	v, err := f.acc.Read(f)
	if err != nil {
		return nil, err
	}
	if v.Type != f.Type {
		return nil, proto.Errorf(proto.StatusTypeMismatch, "accessor of %s returned %s, field is %s",
			f.FullName(), v.Type, f.Type)
	}
	return v, nil
}

// Write stores v through the accessor after checking that it has the
// field's datatype and shape.
func (f *Field) Write(v *proto.Value) error {
	if err := f.CheckValue(v); err != nil {
		return err
	}
	return f.acc.Write(f, v)
}

func (f *Field) CheckValue(v *proto.Value) error {
	if v.Type != f.Type {
		return proto.Errorf(proto.StatusTypeMismatch, "%s value for %s field %s", v.Type, f.Type, f.FullName())
	}
	if proto.NumElements(v.Type, v.Dims) != proto.NumElements(f.Type, f.Dims) {
		return proto.Errorf(proto.StatusIllegalArgument, "value shape %v does not match %v of %s", v.Dims, f.Dims, f.FullName())
	}
	return v.Validate()
}

type Record struct {
	Name   string
	Class  string
	fields []*Field
	index  map[string]int
}

func NewRecord(name string, class string) *Record {
	return &Record{Name: name, Class: class, index: make(map[string]int)}
}

// AddField appends a field. Field indexes follow insertion order and
// never change afterwards.
func (r *Record) AddField(name string, dt proto.Datatype, dims []int, flags Flags, acc Accessor) (*Field, error) {
	if _, dup := r.index[name]; dup {
		return nil, proto.Errorf(proto.StatusIllegalArgument, "field %s.%s already exists", r.Name, name)
	}
	if err := proto.CheckShape(dt, dims); err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, proto.Errorf(proto.StatusIllegalArgument, "field %s.%s has no accessor", r.Name, name)
	}
	f := &Field{
		Name:   name,
		Index:  len(r.fields),
		Type:   dt,
		Dims:   append([]int(nil), dims...),
		ID:     atomic.AddUint64(&lastFieldID, 1),
		Record: r,
		acc:    acc,
		flags:  flags,
	}
	r.fields = append(r.fields, f)
	r.index[name] = f.Index
	return f, nil
}

func (r *Record) Field(name string) (*Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i], true
}

func (r *Record) FieldAt(i int) (*Field, bool) {
	if i < 0 || i >= len(r.fields) {
		return nil, false
	}
	return r.fields[i], true
}

func (r *Record) NumFields() int {
	return len(r.fields)
}

func (r *Record) Fields() []*Field {
	return r.fields
}
