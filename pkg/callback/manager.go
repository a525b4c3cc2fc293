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

// Package callback tracks value-changed subscriptions of client
// connections to fields.
package callback

import (
	"sort"

	"github.com/nbeaver/mx-trunk-sub019/pkg/handle"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

// Callback is shared by every connection subscribed to the same field and
// class. Its id is its handle in the callback table.
type Callback struct {
	ID      handle.Handle
	Class   proto.CallbackClass
	FieldID uint64

	usage map[uint64]int

	// LastValue is the value most recently pushed to subscribers.
	LastValue *proto.Value
}

// Usage returns the subscription count of connID.
func (cb *Callback) Usage(connID uint64) int {
	return cb.usage[connID]
}

func (cb *Callback) TotalUsage() (n int) {
	for _, u := range cb.usage {
		n += u
	}
	return
}

// Subscribers returns the subscribed connection ids in increasing order.
func (cb *Callback) Subscribers() []uint64 {
	ids := make([]uint64, 0, len(cb.usage))
	for id := range cb.usage {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Manager is used from the server loop only.
type Manager struct {
	table   *handle.Table[*Callback]
	byField map[uint64][]*Callback
	byConn  map[uint64]map[handle.Handle]struct{}
}

func NewManager(maxCallbacks int) *Manager {
	return &Manager{
		table:   handle.NewTable[*Callback](maxCallbacks),
		byField: make(map[uint64][]*Callback),
		byConn:  make(map[uint64]map[handle.Handle]struct{}),
	}
}

// Add subscribes connID to changes of the field, creating the callback on
// first use and counting repeated subscriptions.
func (m *Manager) Add(fieldID uint64, connID uint64, class proto.CallbackClass) (*Callback, error) {
	if class != proto.CallbackValueChanged {
		return nil, proto.Errorf(proto.StatusUnsupported, "callback class %d is not supported", uint32(class))
	}
	var cb *Callback
	for _, c := range m.byField[fieldID] {
		if c.Class == class {
			cb = c
			break
		}
	}
	if cb == nil {
		cb = &Callback{Class: class, FieldID: fieldID, usage: make(map[uint64]int)}
		h, err := m.table.Create(cb)
		if err != nil {
			return nil, proto.Errorf(proto.StatusWouldExceedLimit, "%s", err)
		}
		cb.ID = h
		m.byField[fieldID] = append(m.byField[fieldID], cb)
		glog.Debugf("callback %d created for field %d", h, fieldID)
	}
	cb.usage[connID]++
	subs, ok := m.byConn[connID]
	if !ok {
		subs = make(map[handle.Handle]struct{})
		m.byConn[connID] = subs
	}
	subs[cb.ID] = struct{}{}
	return cb, nil
}

func (m *Manager) Get(id handle.Handle) (*Callback, bool) {
	cb, err := m.table.Resolve(id)
	return cb, err == nil
}

// Delete drops one subscription of connID.
func (m *Manager) Delete(id handle.Handle, connID uint64) error {
	cb, err := m.table.Resolve(id)
	if err != nil {
		return proto.Errorf(proto.StatusNotFound, "callback %d does not exist", id)
	}
	if cb.usage[connID] == 0 {
		return proto.Errorf(proto.StatusIllegalArgument, "connection is not subscribed to callback %d", id)
	}
	cb.usage[connID]--
	if cb.usage[connID] == 0 {
		m.unsubscribe(cb, connID)
	}
	return nil
}

// RemoveConnection drops every subscription of connID and returns the
// number of callbacks freed as a result.
func (m *Manager) RemoveConnection(connID uint64) (freed int) {
	subs := m.byConn[connID]
	for id := range subs {
		cb, err := m.table.Resolve(id)
		if err != nil {
			continue
		}
		if m.unsubscribe(cb, connID) {
			freed++
		}
	}
	delete(m.byConn, connID)
	return
}

// unsubscribe removes connID from cb and destroys cb when nobody is left.
func (m *Manager) unsubscribe(cb *Callback, connID uint64) (destroyed bool) {
	delete(cb.usage, connID)
	if subs, ok := m.byConn[connID]; ok {
		delete(subs, cb.ID)
		if len(subs) == 0 {
			delete(m.byConn, connID)
		}
	}
	if len(cb.usage) != 0 {
		return false
	}
	list := m.byField[cb.FieldID]
	for i, c := range list {
		if c == cb {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.byField, cb.FieldID)
	} else {
		m.byField[cb.FieldID] = list
	}
	m.table.Release(cb.ID)
	glog.Debugf("callback %d destroyed", cb.ID)
	return true
}

// Notify calls push once for every connection subscribed to a value
// changed callback of the field.
func (m *Manager) Notify(fieldID uint64, push func(cb *Callback, connID uint64)) (n int) {
	for _, cb := range m.byField[fieldID] {
		if cb.Class != proto.CallbackValueChanged {
			continue
		}
		for _, connID := range cb.Subscribers() {
			push(cb, connID)
			n++
		}
	}
	return
}

// ForField returns the callbacks of a field.
func (m *Manager) ForField(fieldID uint64) []*Callback {
	return m.byField[fieldID]
}

// Fields returns the ids of fields that have callbacks, in increasing order.
func (m *Manager) Fields() []uint64 {
	ids := make([]uint64, 0, len(m.byField))
	for id := range m.byField {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ConnectionCallbacks returns how many callbacks connID is subscribed to.
func (m *Manager) ConnectionCallbacks(connID uint64) int {
	return len(m.byConn[connID])
}

func (m *Manager) Len() int {
	return m.table.Len()
}
