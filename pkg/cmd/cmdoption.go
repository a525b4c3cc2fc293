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

package cmd

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// Option is a flag set that also renders its own option section. Names
// may list aliases separated by '|', as in "c|config".
type Option struct {
	flag.FlagSet
	optsDesc string
}

func (o *Option) describe(name string, kind string, def string, usage string) {
	var opts []string
	for _, n := range strings.Split(name, "|") {
		if n != "" {
			opts = append(opts, "-"+n)
		}
	}
	if kind != "" {
		kind = " " + kind
	}
	o.optsDesc += fmt.Sprintf("  %s%s\n    \t%s\n", strings.Join(opts, ", "), kind, usage)
	if def != "" {
		o.optsDesc += fmt.Sprintf("    \t(default %s)\n", def)
	}
	o.optsDesc += "\n"
}

func (o *Option) each(name string, fn func(n string)) {
	for _, n := range strings.Split(name, "|") {
		if n != "" {
			fn(n)
		}
	}
}

func (o *Option) StringOption(p *string, name string, value string, usage string) {
	o.each(name, func(n string) { o.StringVar(p, n, value, usage) })
	def := ""
	if value != "" {
		def = fmt.Sprintf("%q", value)
	}
	o.describe(name, "string", def, usage)
}

func (o *Option) BoolOption(p *bool, name string, value bool, usage string) {
	o.each(name, func(n string) { o.BoolVar(p, n, value, usage) })
	o.describe(name, "", "", usage)
}

func (o *Option) IntOption(p *int, name string, value int, usage string) {
	o.each(name, func(n string) { o.IntVar(p, n, value, usage) })
	o.describe(name, "int", fmt.Sprint(value), usage)
}

func (o *Option) DurationOption(p *time.Duration, name string, value time.Duration, usage string) {
	o.each(name, func(n string) { o.DurationVar(p, n, value, usage) })
	o.describe(name, "duration", value.String(), usage)
}

func (o *Option) GetOptionDesc() string {
	return o.optsDesc
}
