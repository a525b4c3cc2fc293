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
	"fmt"
	"strconv"
	"strings"
)

type tokenCodec struct {
	opts CodecOptions
}

func (c *tokenCodec) Format() DataFormat {
	return FormatToken
}

// FormatTokens renders v as space separated tokens in row-major order.
func FormatTokens(v *Value, precision int) (string, error) {
	if err := checkEncodable(v); err != nil {
		return "", err
	}
	var sb strings.Builder
	sep := func(i int) {
		if i > 0 {
			sb.WriteByte(' ')
		}
	}
	switch d := v.Data.(type) {
	case []string:
		for i, s := range d {
			tok, err := QuoteToken(s)
			if err != nil {
				return "", err
			}
			sep(i)
			sb.WriteString(tok)
		}
	case []int8:
		for i, x := range d {
			sep(i)
			sb.WriteString(charToken(byte(x)))
		}
	case []uint8:
		for i, x := range d {
			sep(i)
			sb.WriteString(charToken(x))
		}
	case []int16:
		for i, x := range d {
			sep(i)
			sb.WriteString(strconv.FormatInt(int64(x), 10))
		}
	case []uint16:
		for i, x := range d {
			sep(i)
			sb.WriteString(strconv.FormatUint(uint64(x), 10))
		}
	case []bool:
		for i, x := range d {
			sep(i)
			if x {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	case []int64:
		for i, x := range d {
			sep(i)
			sb.WriteString(strconv.FormatInt(x, 10))
		}
	case []uint64:
		for i, x := range d {
			sep(i)
			if v.Type == TypeHex {
				sb.WriteString("0x" + strconv.FormatUint(x, 16))
			} else {
				sb.WriteString(strconv.FormatUint(x, 10))
			}
		}
	case []float32:
		for i, x := range d {
			sep(i)
			sb.WriteString(formatFloat(float64(x), precision, 32))
		}
	case []float64:
		for i, x := range d {
			sep(i)
			sb.WriteString(formatFloat(x, precision, 64))
		}
	}
	return sb.String(), nil
}

func (c *tokenCodec) Encode(dst []byte, v *Value) (int, error) {
	s, err := FormatTokens(v, c.opts.Precision)
	if err != nil {
		return 0, err
	}
	need := len(s) + 1
	if len(dst) < need {
		return 0, &ShortBufferError{Need: need}
	}
	copy(dst, s)
	dst[len(s)] = 0
	return need, nil
}

func (c *tokenCodec) Decode(src []byte, dt Datatype, dims []int) (*Value, error) {
	return ParseTokens(NewTokenizer(string(src)), dt, dims)
}

// ParseTokens reads one value of the given shape from t. Tokens past the
// value are left unread.
func ParseTokens(t *Tokenizer, dt Datatype, dims []int) (*Value, error) {
	v, err := NewValue(dt, dims)
	if err != nil {
		return nil, err
	}
	n := v.Len()
	for i := 0; i < n; i++ {
		tok, ok, err := t.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, Errorf(StatusUnparseableString, "found %d tokens for a %s value of %d elements", i, dt, n)
		}
		if err = parseToken(v, i, tok); err != nil {
			return nil, err
		}
	}
	if err = v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func parseToken(v *Value, i int, tok string) error {
	bad := func(err error) error {
		return Errorf(StatusUnparseableString, "%s value not found in token '%s': %s", v.Type, tok, err)
	}
	switch d := v.Data.(type) {
	case []string:
		d[i] = tok
	case []int8:
		c, err := parseChar(tok)
		if err != nil {
			return bad(err)
		}
		d[i] = int8(c)
	case []uint8:
		c, err := parseChar(tok)
		if err != nil {
			return bad(err)
		}
		d[i] = c
	case []int16:
		x, err := strconv.ParseInt(tok, 0, 16)
		if err != nil {
			return bad(err)
		}
		d[i] = int16(x)
	case []uint16:
		x, err := strconv.ParseUint(tok, 0, 16)
		if err != nil {
			return bad(err)
		}
		d[i] = uint16(x)
	case []bool:
		switch tok {
		case "0":
			d[i] = false
		case "1":
			d[i] = true
		default:
			return Errorf(StatusIllegalArgument,
				"value '%s' for a boolean field is not legal, the allowed values are 0 and 1", tok)
		}
	case []int64:
		x, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return bad(err)
		}
		d[i] = x
	case []uint64:
		x, err := strconv.ParseUint(tok, 0, 64)
		if err != nil {
			return bad(err)
		}
		d[i] = x
	case []float32:
		x, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return bad(err)
		}
		d[i] = float32(x)
	case []float64:
		x, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return bad(err)
		}
		d[i] = x
	}
	return nil
}

func formatFloat(x float64, precision int, bitSize int) string {
	if precision <= 0 {
		return strconv.FormatFloat(x, 'g', -1, bitSize)
	}
	return strconv.FormatFloat(x, 'g', precision, bitSize)
}

// charToken renders printable characters as themselves and anything else
// as a \xNN escape.
func charToken(c byte) string {
	if c > ' ' && c < 0x7f && c != '"' && c != '\\' {
		return string(rune(c))
	}
	return fmt.Sprintf(`\x%02x`, c)
}

func parseChar(tok string) (byte, error) {
	if len(tok) == 1 {
		return tok[0], nil
	}
	if len(tok) == 4 && strings.HasPrefix(tok, `\x`) {
		x, err := strconv.ParseUint(tok[2:], 16, 8)
		if err != nil {
			return 0, err
		}
		return byte(x), nil
	}
	return 0, fmt.Errorf("not a single character")
}
