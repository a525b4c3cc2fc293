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

/*
MX network server
*/
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nbeaver/mx-trunk-sub019/pkg/cmd"
	"github.com/nbeaver/mx-trunk-sub019/pkg/initmgr"
	"github.com/nbeaver/mx-trunk-sub019/pkg/version"
)

func Main() {
	defer initmgr.Finalize()

	var (
		cmdServe Serve
		cmdCheck Check
	)
	cmdServe.Init("serve", "run the server")
	cmdCheck.Init("check", "validate the configuration and the record database")
	cmd.Register(&cmdServe)
	cmd.Register(&cmdCheck)

	command, args := cmd.ParseCommandLine()
	if command == nil {
		// without a command name the options are those of serve
		if len(os.Args) < 2 {
			usage()
			os.Exit(2)
		}
		command = &cmdServe
		args = os.Args[1:]
	}
	if err := command.Parse(args); err != nil {
		os.Exit(2)
	}
	if err := command.Exec(); err != nil {
		fmt.Fprintf(os.Stderr, "* command '%s' failed. %s\n", command.GetName(), err)
		initmgr.Finalize()
		os.Exit(1)
	}
}

func usage() {
	progName := filepath.Base(os.Args[0])
	fmt.Printf(`
NAME
  %s - MX network server

USAGE
  %s -version
  %s -c|-config=<config file>
  %s <command> <options>
`, progName, progName, progName, progName)
	cmd.WriteCommand(os.Stdout)
	version.PrintVersionInfo()
}
