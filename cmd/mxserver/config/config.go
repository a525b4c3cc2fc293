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

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nbeaver/mx-trunk-sub019/pkg/autosave"
	"github.com/nbeaver/mx-trunk-sub019/pkg/initmgr"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	otelCfg "github.com/nbeaver/mx-trunk-sub019/pkg/logging/otel/config"
	"github.com/nbeaver/mx-trunk-sub019/pkg/server"
	"github.com/nbeaver/mx-trunk-sub019/pkg/util"
)

var (
	Initializer initmgr.IInitializer = initmgr.NewInitializer(initialize, finalize)

	Conf = DefaultConfig()
)

type Config struct {
	server.Config

	// RootDir anchors every relative path below. It defaults to the
	// directory of the executable.
	RootDir      string
	DatabaseFile string
	AccessFile   string
	PidFileName  string
	LogLevel     string

	// NumPartitions of the record directory. Zero picks the default.
	NumPartitions uint32

	StateLogEnabled  bool
	StateLogDir      string
	StateLogInterval util.Duration
	StateLogRollKB   int64
	StateLogRolls    int

	Autosave autosave.Config
	Otel     otelCfg.Config
}

func DefaultConfig() Config {
	return Config{
		Config: server.Config{
			Listener: []server.ListenerConfig{
				{Network: "tcp", Addr: ":9727"},
			},
		},
		DatabaseFile:     "mxserver.dat",
		AccessFile:       "mxserver.acl",
		PidFileName:      "mxserver.pid",
		LogLevel:         "info",
		StateLogEnabled:  true,
		StateLogDir:      "./",
		StateLogInterval: util.Duration{Duration: time.Second},
		StateLogRollKB:   10240,
		StateLogRolls:    5,
	}
}

func (c *Config) Dump() {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(c); err != nil {
		glog.Warningf("config dump: %s", err)
		return
	}
	glog.Info(buf.String())
}

// set path to be under Config.RootDir if path is empty or not specified as absolute path
func (c *Config) validatePath(path *string) {
	if path != nil {
		if len(*path) == 0 {
			*path = filepath.Clean(c.RootDir + "/")
		} else if !filepath.IsAbs(*path) {
			*path = filepath.Clean(c.RootDir + "/" + *path)
		}
	}
}

func (c *Config) validatePathAndFileNames() {
	if len(c.RootDir) == 0 {
		c.RootDir = filepath.Dir(os.Args[0])
	}
	c.Autosave.SetDefaultIfNotDefined()
	c.validatePath(&c.DatabaseFile)
	if c.AccessFile != "" {
		c.validatePath(&c.AccessFile)
	}
	c.validatePath(&c.PidFileName)
	c.validatePath(&c.StateLogDir)
	c.validatePath(&c.Autosave.File1)
	c.validatePath(&c.Autosave.File2)
	for i := range c.Listener {
		if c.Listener[i].Network == "unix" {
			c.validatePath(&c.Listener[i].Addr)
		}
	}
}

func (c *Config) Validate() (err error) {
	c.Config.SetDefaultIfNotDefined()
	c.Autosave.SetDefaultIfNotDefined()
	c.Otel.Validate()
	if c.StateLogInterval.Duration <= 0 {
		c.StateLogInterval.Duration = time.Second
	}
	if c.StateLogRolls < 0 || c.StateLogRollKB < 0 {
		return fmt.Errorf("state log roll settings must not be negative")
	}
	if c.Autosave.Enabled && len(c.Autosave.Fields) == 0 {
		glog.Warningf("autosave enabled without fields")
	}
	if err = c.Config.Validate(); err != nil {
		glog.Errorf("config error: %s", err)
	}
	return
}

// LoadConfig decodes file over the defaults in Conf and validates it.
func LoadConfig(file string) (err error) {
	if _, err = toml.DecodeFile(file, &Conf); err != nil {
		return fmt.Errorf("config %s: %w", file, err)
	}
	Conf.validatePathAndFileNames()
	return Conf.Validate()
}

func initialize(args ...interface{}) (err error) {
	if len(args) < 1 {
		return fmt.Errorf("a string config file name argument expected")
	}
	filename, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("wrong argument type. a string config file name expected")
	}
	return LoadConfig(filename)
}

func finalize() {
}
