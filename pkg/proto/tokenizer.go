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
	"strings"
)

const Separators = " \t\n"

func isSeparator(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == 0
}

// Tokenizer splits record-database text into tokens. A token is a run of
// non-separator bytes, or the contents of a double-quoted string, which
// may be empty and may contain separators.
type Tokenizer struct {
	s   string
	pos int
}

func NewTokenizer(s string) *Tokenizer {
	return &Tokenizer{s: s}
}

// Next returns the next token. ok is false at end of input.
func (t *Tokenizer) Next() (tok string, ok bool, err error) {
	for t.pos < len(t.s) && isSeparator(t.s[t.pos]) {
		t.pos++
	}
	if t.pos >= len(t.s) {
		return "", false, nil
	}
	if t.s[t.pos] == '"' {
		end := strings.IndexByte(t.s[t.pos+1:], '"')
		if end < 0 {
			return "", false, Errorf(StatusUnparseableString, "unterminated quoted string at offset %d", t.pos)
		}
		tok = t.s[t.pos+1 : t.pos+1+end]
		t.pos += end + 2
		return tok, true, nil
	}
	start := t.pos
	for t.pos < len(t.s) && !isSeparator(t.s[t.pos]) {
		t.pos++
	}
	return t.s[start:t.pos], true, nil
}

// Rest returns the unconsumed input.
func (t *Tokenizer) Rest() string {
	return t.s[t.pos:]
}

// Tokenize returns every token of s.
func Tokenize(s string) ([]string, error) {
	var toks []string
	t := NewTokenizer(s)
	for {
		tok, ok, err := t.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// QuoteToken renders s so that Tokenizer returns it unchanged. Quoted
// tokens have no escape, so a string that needs quoting and also holds a
// double quote is rejected.
func QuoteToken(s string) (string, error) {
	if s != "" && s[0] != '"' && strings.IndexFunc(s, func(r rune) bool { return r < 0x80 && isSeparator(byte(r)) }) < 0 {
		return s, nil
	}
	if strings.IndexByte(s, '"') >= 0 {
		return "", Errorf(StatusIllegalArgument, "string %q cannot be written as a token", s)
	}
	return `"` + s + `"`, nil
}
