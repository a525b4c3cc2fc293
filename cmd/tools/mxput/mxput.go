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

// mxput writes a field of an MX server. The value is given as command line
// words in token syntax, one word per element.
package main

import (
	"errors"
	"os"

	"github.com/nbeaver/mx-trunk-sub019/internal/cli"
)

type options struct {
	cli.Options
	Echo bool `short:"e" long:"echo" description:"Read the field back and print it"`
}

func main() {
	var opts options
	args := cli.Parse(&opts, &opts.Options, "[OPTIONS] record.field value...")
	if len(args) < 2 {
		cli.Exit(errors.New("a field name and a value are needed"))
	}
	conn, err := opts.Connect()
	if err != nil {
		cli.Exit(err)
	}
	defer conn.Close()

	f, err := conn.Field(args[0])
	if err != nil {
		cli.Exit(err)
	}
	v, err := cli.ParseValue(f, args[1:])
	if err != nil {
		cli.Exit(err)
	}
	if err = conn.PutByHandle(f, v); err != nil {
		cli.Exit(err)
	}
	if opts.Echo {
		if v, err = conn.GetByHandle(f); err != nil {
			cli.Exit(err)
		}
		if err = cli.WriteValue(os.Stdout, f.Name, v); err != nil {
			cli.Exit(err)
		}
	}
}
