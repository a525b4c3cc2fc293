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
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/nbeaver/mx-trunk-sub019/cmd/mxserver/config"
	"github.com/nbeaver/mx-trunk-sub019/pkg/acl"
	"github.com/nbeaver/mx-trunk-sub019/pkg/cmd"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
)

type Check struct {
	cmd.Command
	optConfig string
	optList   bool
}

func (c *Check) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringOption(&c.optConfig, "c|config", "", "specify toml config file")
	c.BoolOption(&c.optList, "l|list", false, "list every record field")
	c.SetSynopsis("-c <config file> [-l]")
	c.AddExample("mxserver check -c mxserver.toml -l", "list the fields a config would serve")
}

func (c *Check) Exec() error {
	if c.optConfig == "" {
		return fmt.Errorf("missing config option")
	}
	level := "warning"
	if c.LogLevel() != "" {
		level = c.LogLevel()
	}
	glog.InitLogging(level, "check")
	if err := config.LoadConfig(c.optConfig); err != nil {
		return err
	}
	cfg := &config.Conf
	dir := record.NewDirectory(cfg.NumPartitions)
	if err := record.LoadDatabaseFile(cfg.DatabaseFile, dir); err != nil {
		return err
	}
	if cfg.AccessFile != "" {
		if _, err := acl.LoadFile(cfg.AccessFile); err != nil {
			return err
		}
	}
	for _, name := range cfg.Autosave.Fields {
		if _, err := dir.Resolve(name); err != nil {
			return fmt.Errorf("autosave field: %w", err)
		}
	}
	fmt.Printf("%s: %d records\n", cfg.DatabaseFile, dir.Len())
	if c.optList {
		writeFields(os.Stdout, dir)
	}
	return nil
}

func writeFields(w io.Writer, dir *record.Directory) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "field\ttype\tdims\tflags\tvalue\n")
	for _, r := range dir.Records() {
		for _, f := range r.Fields() {
			value := "?"
			if v, err := f.Read(); err == nil {
				if s, err := proto.FormatTokens(v, 0); err == nil {
					value = s
				}
			} else if proto.StatusOf(err) == proto.StatusPermissionDenied {
				value = "-"
			}
			dims := make([]string, len(f.Dims))
			for i, d := range f.Dims {
				dims[i] = fmt.Sprint(d)
			}
			fmt.Fprintf(tw, "%s\t%s\t[%s]\t%s\t%s\n", f.FullName(), f.Type, strings.Join(dims, ","), f.Flags(), value)
		}
	}
	tw.Flush()
}
