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

package client

import (
	"fmt"
	"time"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/util"
)

type Duration = util.Duration

type Config struct {
	// Network is "tcp" or "unix".
	Network string
	Addr    string

	DataFormat string
	Long64     bool
	// Legacy clients send 20-byte headers and no client version.
	Legacy bool

	User    string
	Program string

	BufferLimit    int
	ConnectTimeout Duration
	ReadTimeout    Duration
	WriteTimeout   Duration
}

var defaultConfig = Config{
	Network:        "tcp",
	DataFormat:     "raw",
	BufferLimit:    proto.DefaultBufferLimit,
	ConnectTimeout: Duration{Duration: time.Second},
	ReadTimeout:    Duration{Duration: 5 * time.Second},
	WriteTimeout:   Duration{Duration: 5 * time.Second},
}

func SetDefaultTimeout(connect, read, write time.Duration) {
	defaultConfig.ConnectTimeout.Duration = connect
	defaultConfig.ReadTimeout.Duration = read
	defaultConfig.WriteTimeout.Duration = write
}

func (c *Config) SetDefault() {
	*c = defaultConfig
}

func (c *Config) SetDefaultIfNotDefined() {
	if c.Network == "" {
		c.Network = defaultConfig.Network
	}
	if c.DataFormat == "" {
		c.DataFormat = defaultConfig.DataFormat
	}
	if c.BufferLimit == 0 {
		c.BufferLimit = defaultConfig.BufferLimit
	}
	if c.ConnectTimeout.Duration == 0 {
		c.ConnectTimeout = defaultConfig.ConnectTimeout
	}
	if c.ReadTimeout.Duration == 0 {
		c.ReadTimeout = defaultConfig.ReadTimeout
	}
	if c.WriteTimeout.Duration == 0 {
		c.WriteTimeout = defaultConfig.WriteTimeout
	}
}

func (c *Config) validate() error {
	switch c.Network {
	case "tcp", "tcp4", "tcp6", "unix":
	default:
		return fmt.Errorf("Config.Network '%s' not supported", c.Network)
	}
	if len(c.Addr) == 0 {
		return fmt.Errorf("Config.Addr not specified")
	}
	if _, err := proto.ParseDataFormat(c.DataFormat); err != nil {
		return err
	}
	return nil
}
