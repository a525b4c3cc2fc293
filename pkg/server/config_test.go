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

package server

import (
	"testing"

	"github.com/nbeaver/mx-trunk-sub019/pkg/poller"
)

func TestConfigDefaults(t *testing.T) {
	conf := Config{Listener: []ListenerConfig{{Addr: ":9727"}}}
	conf.SetDefaultIfNotDefined()
	if conf.Listener[0].Network != "tcp" {
		t.Errorf("listener network defaulted to %q", conf.Listener[0].Network)
	}
	if conf.EventBackend != poller.BackendEpoll || conf.DefaultDataFormat != "raw" {
		t.Errorf("backend %q format %q", conf.EventBackend, conf.DefaultDataFormat)
	}
	if conf.CallbackPollInterval != DefaultConfig.CallbackPollInterval {
		t.Errorf("poll interval %s", conf.CallbackPollInterval.Duration)
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("Validate: %s", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"no listener", func(c *Config) { c.Listener = nil }},
		{"bad network", func(c *Config) { c.Listener[0].Network = "udp" }},
		{"no address", func(c *Config) { c.Listener[0].Addr = "" }},
		{"bad format", func(c *Config) { c.DefaultDataFormat = "yaml" }},
		{"buffer sizes", func(c *Config) { c.InitialBufferSize = c.BufferLimit + 1 }},
		{"precision", func(c *Config) { c.DisplayPrecision = 18 }},
		{"backend", func(c *Config) { c.EventBackend = "kqueue" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := Config{Listener: []ListenerConfig{{Network: "unix", Addr: "/tmp/mx.sock"}}}
			conf.SetDefaultIfNotDefined()
			tc.mod(&conf)
			if err := conf.Validate(); err == nil {
				t.Errorf("invalid config accepted")
			}
		})
	}
}

func TestConfigFormatAliases(t *testing.T) {
	for _, name := range []string{"token", "raw", "portable", "ascii", "text", "xdr"} {
		conf := Config{Listener: []ListenerConfig{{Network: "unix", Addr: "/tmp/mx.sock"}}}
		conf.SetDefaultIfNotDefined()
		conf.DefaultDataFormat = name
		if err := conf.Validate(); err != nil {
			t.Errorf("format %s: %s", name, err)
		}
	}
}
