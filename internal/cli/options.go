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

// Package cli holds what the command line tools share: connection flags,
// dialing and value formatting.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/nbeaver/mx-trunk-sub019/pkg/client"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/version"
)

// Options are the connection flags of every tool.
type Options struct {
	ShowVersion bool          `short:"V" long:"version" description:"Display version information and exit"`
	Server      string        `short:"s" long:"server" default:"127.0.0.1:9727" description:"Server host:port, or the path of a Unix socket"`
	Format      string        `short:"f" long:"format" default:"raw" choice:"token" choice:"raw" choice:"portable" description:"Data format"`
	Long64      bool          `long:"long64" description:"Send long values as 64-bit words"`
	Legacy      bool          `long:"legacy" description:"Behave like a client without message ids"`
	User        string        `short:"u" long:"user" description:"User name reported to the server"`
	Timeout     time.Duration `short:"t" long:"timeout" default:"5s" description:"Connect and I/O timeout"`
}

// Network infers the transport from the server address.
func (o *Options) Network() string {
	if strings.ContainsRune(o.Server, '/') {
		return "unix"
	}
	return "tcp"
}

// Parse parses os.Args into data, which must embed Options, and returns
// the positional arguments. A version or help request exits.
func Parse(data interface{}, opts *Options, usage string) []string {
	parser := flags.NewParser(data, flags.Default)
	parser.Usage = usage
	args, err := parser.Parse()
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.ShowVersion {
		version.PrintVersionInfo()
		os.Exit(0)
	}
	return args
}

// Connect dials the server and reports the invoking user and program.
func (o *Options) Connect() (client.IClient, error) {
	user := o.User
	if user == "" {
		user = os.Getenv("USER")
	}
	cfg := client.Config{
		Network:        o.Network(),
		Addr:           o.Server,
		DataFormat:     o.Format,
		Long64:         o.Long64,
		Legacy:         o.Legacy,
		User:           user,
		Program:        filepath.Base(os.Args[0]),
		ConnectTimeout: client.Duration{Duration: o.Timeout},
		ReadTimeout:    client.Duration{Duration: o.Timeout},
		WriteTimeout:   client.Duration{Duration: o.Timeout},
	}
	return client.New(cfg)
}

// ParseValue reads a value of f's shape from command line words.
func ParseValue(f *client.Field, words []string) (*proto.Value, error) {
	text := make([]string, len(words))
	for i, w := range words {
		tok, err := proto.QuoteToken(w)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		text[i] = tok
	}
	t := proto.NewTokenizer(strings.Join(text, " "))
	v, err := proto.ParseTokens(t, f.Type, f.Dims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	if rest := strings.TrimSpace(t.Rest()); rest != "" {
		return nil, fmt.Errorf("%s: unexpected '%s' after the value", f.Name, rest)
	}
	return v, nil
}

// WriteValue prints "name value" in token syntax.
func WriteValue(w io.Writer, name string, v *proto.Value) error {
	s, err := proto.FormatTokens(v, 0)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s %s\n", name, s)
	return err
}

// Exit prints err and exits with status 1.
func Exit(err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(os.Args[0]), err)
	os.Exit(1)
}
