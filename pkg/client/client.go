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

/*
Package client talks to an mxserver over TCP or a Unix domain socket.

A client is not safe for concurrent use. Requests are answered in order;
callback messages that arrive while a reply is awaited are queued and
returned by WaitCallback.

Errors returned by the request methods

	*proto.StatusError   the server answered with a nonzero status
	ErrUnexpectedReply   the reply does not match the request
	other                transport failure, the client should be closed
*/
package client

import (
	"time"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

// Field describes a remote field. Handles are zero until resolved.
type Field struct {
	Name         string
	Type         proto.Datatype
	Dims         []int
	RecordHandle uint32
	FieldHandle  uint32
}

// Callback is one value changed message.
type Callback struct {
	ID    uint32
	Field *Field
	Value *proto.Value
}

type IClient interface {
	SetClientInfo(user, program string, pid int) error
	GetOption(opt proto.OptionNumber) (uint32, error)
	SetOption(opt proto.OptionNumber, v uint32) error
	SetFormat(f proto.DataFormat) error

	// Field resolves the type and network handle of "record.field".
	Field(name string) (*Field, error)
	FieldType(name string) (proto.Datatype, []int, error)
	NetworkHandle(name string) (rh, fh uint32, err error)

	Get(name string) (*proto.Value, error)
	Put(name string, v *proto.Value) error
	GetByHandle(f *Field) (*proto.Value, error)
	PutByHandle(f *Field, v *proto.Value) error

	GetAttribute(name string, attr proto.AttributeNumber) (float64, error)
	SetAttribute(name string, attr proto.AttributeNumber, x float64) error

	AddCallback(f *Field) (id uint32, err error)
	DeleteCallback(id uint32) error
	WaitCallback(timeout time.Duration) (*Callback, error)

	Close() error
}
