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

// Package handle maps small positive integers onto objects so that
// clients can address them remotely.
package handle

import (
	"container/heap"
	"fmt"
)

// Handle 0 and negative handles are never issued.
type Handle int32

const Null = Handle(0)

var ErrNotFound = fmt.Errorf("handle not found")

// freeList is a min-heap of released slot indices.
type freeList []int

func (f freeList) Len() int            { return len(f) }
func (f freeList) Less(i, j int) bool  { return f[i] < f[j] }
func (f freeList) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *freeList) Push(x interface{}) { *f = append(*f, x.(int)) }
func (f *freeList) Pop() interface{} {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}

type slot[T comparable] struct {
	obj  T
	used bool
}

// Table issues handles for objects of type T. Create always reuses the
// lowest free handle. A Table is not safe for concurrent use.
type Table[T comparable] struct {
	slots   []slot[T]
	free    freeList
	reverse map[T]Handle
	limit   int
}

// NewTable creates a table that issues at most limit handles, or any
// number when limit is not positive.
func NewTable[T comparable](limit int) *Table[T] {
	return &Table[T]{
		reverse: make(map[T]Handle),
		limit:   limit,
	}
}

func (t *Table[T]) Create(obj T) (Handle, error) {
	var idx int
	if t.free.Len() > 0 {
		idx = heap.Pop(&t.free).(int)
	} else {
		if t.limit > 0 && len(t.slots) >= t.limit {
			return Null, fmt.Errorf("handle table full at %d entries", t.limit)
		}
		idx = len(t.slots)
		t.slots = append(t.slots, slot[T]{})
	}
	t.slots[idx] = slot[T]{obj: obj, used: true}
	h := Handle(idx + 1)
	t.reverse[obj] = h
	return h, nil
}

func (t *Table[T]) Resolve(h Handle) (obj T, err error) {
	idx := int(h) - 1
	if idx < 0 || idx >= len(t.slots) || !t.slots[idx].used {
		err = fmt.Errorf("%w: %d", ErrNotFound, h)
		return
	}
	return t.slots[idx].obj, nil
}

// Lookup returns the handle currently issued for obj.
func (t *Table[T]) Lookup(obj T) (Handle, bool) {
	h, ok := t.reverse[obj]
	return h, ok
}

func (t *Table[T]) Release(h Handle) error {
	idx := int(h) - 1
	if idx < 0 || idx >= len(t.slots) || !t.slots[idx].used {
		return fmt.Errorf("%w: %d", ErrNotFound, h)
	}
	if cur, ok := t.reverse[t.slots[idx].obj]; ok && cur == h {
		delete(t.reverse, t.slots[idx].obj)
	}
	var zero T
	t.slots[idx] = slot[T]{obj: zero}
	heap.Push(&t.free, idx)
	return nil
}

// Len returns the number of issued handles.
func (t *Table[T]) Len() int {
	return len(t.slots) - t.free.Len()
}

// Range calls fn for every issued handle in increasing order until fn
// returns false. fn may release the handle it is given.
func (t *Table[T]) Range(fn func(h Handle, obj T) bool) {
	for i := 0; i < len(t.slots); i++ {
		if t.slots[i].used {
			if !fn(Handle(i+1), t.slots[i].obj) {
				return
			}
		}
	}
}
