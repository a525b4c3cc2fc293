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

// Package cmd is a small subcommand framework for the server binaries.
// Each command owns a flag set and is selected by the first non-flag word
// of the command line.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/version"
)

var commands = make(map[string]ICommand)

type (
	ICommand interface {
		GetName() string
		GetDesc() string
		GetSynopsis() string
		GetDetails() string
		GetOptionDesc() string
		GetExample() string
		Init(name string, desc string)
		Parse(args []string) error
		Exec() error
		PrintUsage()
	}

	// Command carries what every command shares: its flag set, help
	// texts and the -log option.
	Command struct {
		Option
		name     string
		desc     string
		synopsis string
		details  string
		examples string
		logLevel string
	}
)

func (c *Command) Init(name string, desc string) {
	c.name = name
	c.desc = desc
	c.Option.Init(name, flag.ContinueOnError)
	c.StringOption(&c.logLevel, "log", "", "log level: error, warning, info, debug or verbose")
	c.Option.Usage = c.PrintUsage
}

func (c *Command) SetSynopsis(str string) {
	c.synopsis = str
}

func (c *Command) GetName() string {
	return c.name
}

func (c *Command) GetDesc() string {
	return c.desc
}

func (c *Command) GetSynopsis() string {
	return c.synopsis
}

func (c *Command) GetDetails() string {
	return c.details
}

func (c *Command) GetExample() string {
	return c.examples
}

// LogLevel is the -log option, empty when not given.
func (c *Command) LogLevel() string {
	return c.logLevel
}

func (c *Command) AddExample(cmdExample string, desc string) {
	c.examples += "\t" + desc + "\n\t\t" + cmdExample + "\n\n"
}

func (c *Command) AddDetails(txt string) {
	c.details += txt
}

func (c *Command) Write(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := usageTemplate.Execute(tw, c); err != nil {
		fmt.Fprintln(w, err)
	}
	tw.Flush()
}

func (c *Command) PrintUsage() {
	c.Write(os.Stderr)
}

func (c *Command) Parse(arguments []string) (err error) {
	if err = c.Option.Parse(arguments); err == nil && c.logLevel != "" {
		glog.SetLevel(c.logLevel)
	}
	return
}

func Register(c ICommand) bool {
	if _, found := commands[c.GetName()]; found {
		fmt.Fprintf(os.Stderr, "command %s has been registered\n", c.GetName())
		return false
	}
	commands[c.GetName()] = c
	return true
}

func GetCommand(name string) ICommand {
	return commands[name]
}

// ParseCommandLine finds the first registered command name in os.Args.
// The arguments before it and after it are returned together.
func ParseCommandLine() (cmd ICommand, args []string) {
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		if cmd = GetCommand(arg); cmd != nil {
			args = append(args, os.Args[i+1:]...)
			return
		}
		args = append(args, arg)
	}
	return
}

func WriteCommand(w io.Writer) {
	if len(commands) == 0 {
		return
	}
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "\nCOMMAND")
	for _, name := range names {
		fmt.Fprintf(w, "    * %s\n      %s\n", name, commands[name].GetDesc())
	}
}

func PrintUsage() {
	progName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "\nUSAGE\n  %s [-version] [[options] <command> [<args>]] \n\n", progName)
	WriteCommand(os.Stderr)
}

func PrintVersionOrUsage() {
	var option Option
	var displayVersion bool
	option.Init(filepath.Base(os.Args[0]), flag.ContinueOnError)
	option.BoolOption(&displayVersion, "version", false, "display version info.")
	option.Usage = PrintUsage
	if err := option.Parse(os.Args[1:]); err == nil {
		if displayVersion {
			version.PrintVersionInfo()
			return
		}
	}
	PrintUsage()
}
