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

import (
	"reflect"
	"testing"
)

func TestDecodeName(t *testing.T) {
	body := make([]byte, 64)
	n, _ := ChainEncoder(NameEncoder("m1.position"), WordsEncoder(9))(body)
	name, rest, err := DecodeName(body[:n], false)
	if err != nil {
		t.Fatalf("DecodeName: %s", err)
	}
	if name != "m1.position" {
		t.Errorf("name %q", name)
	}
	words, _, err := Words(rest, 1)
	if err != nil || words[0] != 9 {
		t.Errorf("value after name: %v %v", words, err)
	}

	name, rest, err = DecodeName([]byte("m1.position 1.5 2\x00"), true)
	if err != nil || name != "m1.position" || string(rest) != " 1.5 2\x00" {
		t.Errorf("text body: %q %q %v", name, rest, err)
	}

	if _, _, err = DecodeName([]byte("m1.position"), false); StatusOf(err) != StatusIllegalArgument {
		t.Errorf("unterminated binary name: %v", err)
	}
	if _, _, err = DecodeName([]byte{0, 0, 0, 0}, false); StatusOf(err) != StatusIllegalArgument {
		t.Errorf("empty name: %v", err)
	}
}

func TestSplitRecordField(t *testing.T) {
	r, f, err := SplitRecordField("motor1.position")
	if err != nil || r != "motor1" || f != "position" {
		t.Errorf("got %q %q %v", r, f, err)
	}
	for _, bad := range []string{"motor1", ".position", "motor1.", ""} {
		if _, _, err = SplitRecordField(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestTokenize(t *testing.T) {
	toks, err := Tokenize("  a \"b c\"\t\"\"\nd ")
	if err != nil {
		t.Fatalf("Tokenize: %s", err)
	}
	want := []string{"a", "b c", "", "d"}
	if !reflect.DeepEqual(toks, want) {
		t.Errorf("got %q, want %q", toks, want)
	}
	if _, err = Tokenize(`a "b`); StatusOf(err) != StatusUnparseableString {
		t.Errorf("unterminated quote: %v", err)
	}
	for _, s := range []string{"", "plain", "with space", "tab\there", `a"b`} {
		q, err := QuoteToken(s)
		if err != nil {
			t.Fatalf("QuoteToken(%q): %s", s, err)
		}
		toks, _ = Tokenize(q)
		if len(toks) != 1 || toks[0] != s {
			t.Errorf("QuoteToken(%q) tokenized to %q", s, toks)
		}
	}
	for _, s := range []string{`"x`, `a" b`, `"`} {
		if _, err = QuoteToken(s); StatusOf(err) != StatusIllegalArgument {
			t.Errorf("QuoteToken(%q): %v", s, err)
		}
	}
}

func TestMessageTypeNames(t *testing.T) {
	if MsgGetByHandle.Response().String() != "GetByHandleResponse" {
		t.Errorf("got %s", MsgGetByHandle.Response())
	}
	if MsgPutByName.Response().Request() != MsgPutByName {
		t.Errorf("request of response")
	}
	if VersionString(2001003) != "2.1.3" {
		t.Errorf("got %s", VersionString(2001003))
	}
	if f, err := ParseDataFormat("xdr"); err != nil || f != FormatPortable {
		t.Errorf("xdr alias: %v %v", f, err)
	}
}
