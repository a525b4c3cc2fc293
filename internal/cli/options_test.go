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

package cli

import (
	"bytes"
	"testing"

	"github.com/nbeaver/mx-trunk-sub019/pkg/client"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

func TestParseValue(t *testing.T) {
	f := &client.Field{Name: "t.sa", Type: proto.TypeString, Dims: []int{2, 16}}
	v, err := ParseValue(f, []string{"alpha", "two words"})
	if err != nil {
		t.Fatalf("ParseValue: %s", err)
	}
	var buf bytes.Buffer
	if err = WriteValue(&buf, f.Name, v); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "t.sa alpha \"two words\"\n" {
		t.Errorf("WriteValue %q", got)
	}

	f = &client.Field{Name: "m1.position", Type: proto.TypeDouble}
	if _, err = ParseValue(f, []string{"1.5", "2.5"}); err == nil {
		t.Errorf("extra word accepted")
	}
	if _, err = ParseValue(f, []string{"fast"}); err == nil {
		t.Errorf("word that is not a number accepted")
	}
}

func TestNetwork(t *testing.T) {
	o := Options{Server: "127.0.0.1:9727"}
	if o.Network() != "tcp" {
		t.Errorf("%s for a host:port", o.Network())
	}
	o.Server = "/var/run/mxserver.sock"
	if o.Network() != "unix" {
		t.Errorf("%s for a socket path", o.Network())
	}
}
