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

package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
)

func TestWriteFields(t *testing.T) {
	dir := record.NewDirectory(0)
	err := record.LoadDatabase(`
[[Record]]
Name = "m1"
  [[Record.Field]]
  Name = "position"
  Type = "double"
  Value = "1.5"
  [[Record.Field]]
  Name = "units"
  Type = "string"
  Dims = [16]
  Flags = ["read_only"]
  Value = "mm"
`, dir)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	writeFields(&buf, dir)
	out := buf.String()
	for _, want := range []string{"m1.position", "1.5", "m1.units", "read_only", "[16]"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing lacks %q:\n%s", want, out)
		}
	}
}
