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

// Package access resolves remote field addresses and performs permission
// checked reads, writes and attribute operations on fields.
package access

import (
	"github.com/nbeaver/mx-trunk-sub019/pkg/handle"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
)

// Engine is used from the server loop only.
type Engine struct {
	dir     *record.Directory
	records *handle.Table[*record.Record]
}

func NewEngine(dir *record.Directory, maxRecordHandles int) *Engine {
	return &Engine{
		dir:     dir,
		records: handle.NewTable[*record.Record](maxRecordHandles),
	}
}

func (e *Engine) Directory() *record.Directory {
	return e.dir
}

// ResolveName looks the field up again on every call.
func (e *Engine) ResolveName(name string) (*record.Field, error) {
	return e.dir.Resolve(name)
}

func (e *Engine) ResolveHandle(rh, fh uint32) (*record.Field, error) {
	if int32(rh) <= 0 {
		return nil, proto.Errorf(proto.StatusBadHandle, "illegal record handle %d", int32(rh))
	}
	r, err := e.records.Resolve(handle.Handle(rh))
	if err != nil {
		return nil, proto.Errorf(proto.StatusBadHandle, "record handle %d is not valid", rh)
	}
	f, ok := r.FieldAt(int(int32(fh)))
	if !ok {
		return nil, proto.Errorf(proto.StatusBadHandle, "field handle %d is out of range for record '%s' with %d fields",
			int32(fh), r.Name, r.NumFields())
	}
	return f, nil
}

// NetworkHandle returns the record handle, creating it on first use, and
// the field index.
func (e *Engine) NetworkHandle(f *record.Field) (rh, fh uint32, err error) {
	h, ok := e.records.Lookup(f.Record)
	if !ok {
		if h, err = e.records.Create(f.Record); err != nil {
			err = proto.Errorf(proto.StatusWouldExceedLimit, "%s", err)
			return
		}
		glog.Debugf("record handle %d issued for %s", h, f.Record.Name)
	}
	return uint32(h), uint32(f.Index), nil
}

func (e *Engine) Get(f *record.Field) (*proto.Value, error) {
	if f.Flags().Has(record.FlagNoAccess) {
		return nil, proto.Errorf(proto.StatusPermissionDenied, "field '%s' is not accessible", f.FullName())
	}
	return f.Read()
}

// Put decodes body in the caller's format and writes it. The stored value
// is unchanged when any step fails.
func (e *Engine) Put(f *record.Field, body []byte, c proto.Codec) error {
	flags := f.Flags()
	if flags.Has(record.FlagNoAccess) {
		return proto.Errorf(proto.StatusPermissionDenied, "field '%s' is not accessible", f.FullName())
	}
	if flags.Has(record.FlagReadOnly) {
		return proto.Errorf(proto.StatusPermissionDenied, "field '%s' is read only", f.FullName())
	}
	v, err := c.Decode(body, f.Type, f.Dims)
	if err != nil {
		return err
	}
	return f.Write(v)
}

// FieldType returns the words of a get-field-type reply: the datatype,
// the number of dimensions and at least one dimension size.
func (e *Engine) FieldType(f *record.Field) []uint32 {
	words := []uint32{uint32(f.Type), uint32(len(f.Dims))}
	if len(f.Dims) == 0 {
		return append(words, 0)
	}
	for _, d := range f.Dims {
		words = append(words, uint32(d))
	}
	return words
}

func boolAttr(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (e *Engine) GetAttribute(f *record.Field, attr proto.AttributeNumber) (float64, error) {
	flags := f.Flags()
	switch attr {
	case proto.AttrValueChangeThreshold:
		return f.Threshold(), nil
	case proto.AttrPollable:
		return boolAttr(flags.Has(record.FlagPollable)), nil
	case proto.AttrReadOnly:
		return boolAttr(flags.Has(record.FlagReadOnly)), nil
	case proto.AttrNoAccess:
		return boolAttr(flags.Has(record.FlagNoAccess)), nil
	}
	return 0, proto.Errorf(proto.StatusIllegalArgument, "unknown attribute %d", uint32(attr))
}

func (e *Engine) SetAttribute(f *record.Field, attr proto.AttributeNumber, x float64) error {
	if f.Flags().Has(record.FlagNoAccess) {
		return proto.Errorf(proto.StatusPermissionDenied, "field '%s' is not accessible", f.FullName())
	}
	switch attr {
	case proto.AttrValueChangeThreshold:
		f.SetThreshold(x)
		return nil
	case proto.AttrPollable:
		f.SetFlag(record.FlagPollable, x != 0)
		return nil
	case proto.AttrReadOnly, proto.AttrNoAccess:
		return proto.Errorf(proto.StatusPermissionDenied, "attribute %d of '%s' cannot be changed", uint32(attr), f.FullName())
	}
	return proto.Errorf(proto.StatusIllegalArgument, "unknown attribute %d", uint32(attr))
}
