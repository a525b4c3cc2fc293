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

package proto

const (
	DefaultBufferSize  = 2000
	DefaultBufferLimit = 16 * 1024 * 1024
)

// Buffer is a per-connection message buffer. It only grows, and never past
// its limit.
type Buffer struct {
	data  []byte
	limit int
	grows int
}

func NewBuffer(size int, limit int) *Buffer {
	if size < HeaderSize {
		size = HeaderSize
	}
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	if size > limit {
		size = limit
	}
	return &Buffer{data: make([]byte, size), limit: limit}
}

func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Cap() int {
	return len(b.data)
}

func (b *Buffer) Limit() int {
	return b.limit
}

// Grows returns how many times the buffer has been enlarged.
func (b *Buffer) Grows() int {
	return b.grows
}

// Grow makes the buffer at least need bytes long, keeping its contents.
func (b *Buffer) Grow(need int) error {
	if need <= len(b.data) {
		return nil
	}
	if need > b.limit {
		return Errorf(StatusWouldExceedLimit,
			"message of %d bytes would exceed the buffer limit of %d bytes", need, b.limit)
	}
	data := make([]byte, need)
	copy(data, b.data)
	b.data = data
	b.grows++
	return nil
}

func (b *Buffer) Release() {
	b.data = nil
}
