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

// mxget prints field values of an MX server and optionally follows them
// with value changed callbacks.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nbeaver/mx-trunk-sub019/internal/cli"
	"github.com/nbeaver/mx-trunk-sub019/pkg/client"
)

type options struct {
	cli.Options
	ShowType bool          `short:"T" long:"type" description:"Print the datatype and dimensions of each field"`
	Watch    bool          `short:"w" long:"watch" description:"Print value changes until interrupted"`
	Count    int           `short:"n" long:"count" description:"Exit after this many changes when watching"`
	Wait     time.Duration `long:"wait" default:"1s" description:"Callback wait granularity when watching"`
}

func main() {
	var opts options
	names := cli.Parse(&opts, &opts.Options, "[OPTIONS] record.field...")
	if len(names) == 0 {
		cli.Exit(errors.New("no field given"))
	}
	conn, err := opts.Connect()
	if err != nil {
		cli.Exit(err)
	}
	defer conn.Close()

	fields := make([]*client.Field, len(names))
	for i, name := range names {
		if fields[i], err = conn.Field(name); err != nil {
			cli.Exit(fmt.Errorf("%s: %w", name, err))
		}
		if opts.ShowType {
			fmt.Printf("%s %s %v\n", name, fields[i].Type, fields[i].Dims)
		}
		v, err := conn.GetByHandle(fields[i])
		if err != nil {
			cli.Exit(fmt.Errorf("%s: %w", name, err))
		}
		if err = cli.WriteValue(os.Stdout, name, v); err != nil {
			cli.Exit(err)
		}
	}
	if !opts.Watch {
		return
	}
	for _, f := range fields {
		if _, err = conn.AddCallback(f); err != nil {
			cli.Exit(fmt.Errorf("%s: %w", f.Name, err))
		}
	}
	for seen := 0; opts.Count == 0 || seen < opts.Count; {
		cb, err := conn.WaitCallback(opts.Wait)
		if errors.Is(err, client.ErrNoCallback) {
			continue
		}
		if err != nil {
			cli.Exit(err)
		}
		if err = cli.WriteValue(os.Stdout, cb.Field.Name, cb.Value); err != nil {
			cli.Exit(err)
		}
		seen++
	}
}
