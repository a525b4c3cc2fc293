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
	"fmt"
	"time"

	"github.com/nbeaver/mx-trunk-sub019/pkg/poller"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
	"github.com/nbeaver/mx-trunk-sub019/pkg/util"
)

var (
	DefaultConfig = Config{
		EventBackend:         poller.BackendEpoll,
		MaxConnections:       1000,
		DefaultDataFormat:    "raw",
		BufferLimit:          proto.DefaultBufferLimit,
		InitialBufferSize:    proto.DefaultBufferSize,
		ReadTimeout:          util.Duration{Duration: 5 * time.Second},
		WriteTimeout:         util.Duration{Duration: 5 * time.Second},
		CallbackPollInterval: util.Duration{Duration: 100 * time.Millisecond},
		MaxPendingPushes:     1000,
		MaxRecordHandles:     100000,
		MaxCallbacks:         100000,
	}
)

type (
	ListenerConfig struct {
		// Network is "tcp" or "unix".
		Network string
		Addr    string
	}

	Config struct {
		Listener          []ListenerConfig
		EventBackend      string
		MaxConnections    int
		DefaultDataFormat string
		BufferLimit       int
		InitialBufferSize int
		ReadTimeout       util.Duration
		WriteTimeout      util.Duration

		// CallbackPollInterval is how often fields with callbacks are
		// checked for changes.
		CallbackPollInterval util.Duration
		DisableCallbackPoll  bool

		// DisplayPrecision is the number of significant digits of
		// floating point tokens. Zero means as many as needed.
		DisplayPrecision int
		MaxPendingPushes int
		MaxRecordHandles int
		MaxCallbacks     int
	}
)

func (cfg *ListenerConfig) SetDefaultIfNotDefined() {
	if len(cfg.Network) == 0 {
		cfg.Network = "tcp"
	}
}

func (cfg *ListenerConfig) Validate() error {
	switch cfg.Network {
	case "tcp", "tcp4", "tcp6", "unix":
	default:
		return fmt.Errorf("listener network '%s' not supported", cfg.Network)
	}
	if len(cfg.Addr) == 0 {
		return fmt.Errorf("listener address not specified")
	}
	return nil
}

func (conf *Config) SetDefaultIfNotDefined() {
	for i := range conf.Listener {
		conf.Listener[i].SetDefaultIfNotDefined()
	}
	if conf.EventBackend == "" {
		conf.EventBackend = DefaultConfig.EventBackend
	}
	if conf.MaxConnections == 0 {
		conf.MaxConnections = DefaultConfig.MaxConnections
	}
	if conf.DefaultDataFormat == "" {
		conf.DefaultDataFormat = DefaultConfig.DefaultDataFormat
	}
	if conf.BufferLimit == 0 {
		conf.BufferLimit = DefaultConfig.BufferLimit
	}
	if conf.InitialBufferSize == 0 {
		conf.InitialBufferSize = DefaultConfig.InitialBufferSize
	}
	if conf.ReadTimeout.Duration == 0 {
		conf.ReadTimeout = DefaultConfig.ReadTimeout
	}
	if conf.WriteTimeout.Duration == 0 {
		conf.WriteTimeout = DefaultConfig.WriteTimeout
	}
	if conf.CallbackPollInterval.Duration == 0 {
		conf.CallbackPollInterval = DefaultConfig.CallbackPollInterval
	}
	if conf.MaxPendingPushes == 0 {
		conf.MaxPendingPushes = DefaultConfig.MaxPendingPushes
	}
	if conf.MaxRecordHandles == 0 {
		conf.MaxRecordHandles = DefaultConfig.MaxRecordHandles
	}
	if conf.MaxCallbacks == 0 {
		conf.MaxCallbacks = DefaultConfig.MaxCallbacks
	}
}

func (conf *Config) Validate() error {
	if len(conf.Listener) == 0 {
		return fmt.Errorf("no listener configured")
	}
	for i := range conf.Listener {
		if err := conf.Listener[i].Validate(); err != nil {
			return err
		}
	}
	if _, err := proto.ParseDataFormat(conf.DefaultDataFormat); err != nil {
		return err
	}
	if conf.InitialBufferSize > conf.BufferLimit {
		return fmt.Errorf("InitialBufferSize %d is larger than BufferLimit %d",
			conf.InitialBufferSize, conf.BufferLimit)
	}
	if conf.DisplayPrecision < 0 || conf.DisplayPrecision > 17 {
		return fmt.Errorf("DisplayPrecision %d out of range", conf.DisplayPrecision)
	}
	switch conf.EventBackend {
	case poller.BackendEpoll, poller.BackendSelect:
	default:
		return fmt.Errorf("unknown EventBackend '%s'", conf.EventBackend)
	}
	return nil
}
