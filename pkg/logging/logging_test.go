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

package logging

import (
	"testing"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

func TestKVBufferForLog(t *testing.T) {
	b := NewKVBufferForLog()
	b.AddConnID(3).AddClient("alice", "mxget", 42).AddMsgType(proto.MsgGetByName).AddStatus(proto.StatusSuccess)
	want := "conn=3,user=alice,prog=mxget,pid=42,msg=GetByName,st=success"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}

func TestKVBufferSkipsSuccess(t *testing.T) {
	b := NewKVBuffer()
	b.AddField("m1.position").AddStatus(proto.StatusSuccess).AddStatus(proto.StatusNotFound)
	if want := "field=m1.position&st=not found"; b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}
