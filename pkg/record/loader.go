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

package record

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

// A database file lists records and their fields:
//
//	[[Record]]
//	Name = "motor1"
//	Class = "soft_motor"
//	  [[Record.Field]]
//	  Name = "position"
//	  Type = "double"
//	  Flags = ["pollable"]
//	  Threshold = 0.001
//	  Value = "0"
type DatabaseConfig struct {
	Record []RecordConfig
}

type RecordConfig struct {
	Name  string
	Class string
	Field []FieldConfig
}

type FieldConfig struct {
	Name      string
	Type      string
	Dims      []int
	Flags     []string
	Threshold float64
	// Value is the initial value in token syntax.
	Value string
}

func LoadDatabaseFile(path string, dir *Directory) error {
	var cfg DatabaseConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return fmt.Errorf("record database %s: %w", path, err)
	}
	if err := cfg.Populate(dir); err != nil {
		return fmt.Errorf("record database %s: %w", path, err)
	}
	glog.Infof("loaded %d records from %s", len(cfg.Record), path)
	return nil
}

func LoadDatabase(text string, dir *Directory) error {
	var cfg DatabaseConfig
	if _, err := toml.Decode(text, &cfg); err != nil {
		return err
	}
	return cfg.Populate(dir)
}

// Populate creates soft-backed records and adds them to dir.
func (c *DatabaseConfig) Populate(dir *Directory) error {
	for _, rc := range c.Record {
		r := NewRecord(rc.Name, rc.Class)
		for _, fc := range rc.Field {
			dt, err := proto.ParseDatatype(fc.Type)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", rc.Name, fc.Name, err)
			}
			var flags Flags
			for _, name := range fc.Flags {
				fl, ok := ParseFlag(name)
				if !ok {
					return fmt.Errorf("%s.%s: unknown flag '%s'", rc.Name, fc.Name, name)
				}
				flags |= fl
			}
			var initial *proto.Value
			if fc.Value != "" {
				if err = proto.CheckShape(dt, fc.Dims); err != nil {
					return fmt.Errorf("%s.%s: %w", rc.Name, fc.Name, err)
				}
				if initial, err = proto.ParseTokens(proto.NewTokenizer(fc.Value), dt, fc.Dims); err != nil {
					return fmt.Errorf("%s.%s: %w", rc.Name, fc.Name, err)
				}
			}
			f, err := r.AddField(fc.Name, dt, fc.Dims, flags, NewSoft(initial))
			if err != nil {
				return err
			}
			f.SetThreshold(fc.Threshold)
		}
		if err := dir.Add(r); err != nil {
			return err
		}
	}
	return nil
}
