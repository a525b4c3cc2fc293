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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/nbeaver/mx-trunk-sub019/cmd/mxserver/config"
	"github.com/nbeaver/mx-trunk-sub019/pkg/acl"
	"github.com/nbeaver/mx-trunk-sub019/pkg/autosave"
	"github.com/nbeaver/mx-trunk-sub019/pkg/cmd"
	"github.com/nbeaver/mx-trunk-sub019/pkg/initmgr"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/otel"
	"github.com/nbeaver/mx-trunk-sub019/pkg/record"
	"github.com/nbeaver/mx-trunk-sub019/pkg/server"
	"github.com/nbeaver/mx-trunk-sub019/pkg/stats"
	"github.com/nbeaver/mx-trunk-sub019/pkg/version"
)

type Serve struct {
	cmd.Command
	optConfig  string
	optVersion bool
}

func (c *Serve) Init(name string, desc string) {
	c.Command.Init(name, desc)
	c.StringOption(&c.optConfig, "c|config", "", "specify toml config file")
	c.BoolOption(&c.optVersion, "version", false, "display version info")
	c.SetSynopsis("-c <config file> [-log <level>]")
	c.AddDetails(`	Loads the record database, restores autosaved fields and serves
	clients on every configured listener until SIGINT or SIGTERM.`)
	c.AddExample(name+" -c mxserver.toml", "serve with a config file")
}

func (c *Serve) Exec() error {
	if c.optVersion {
		version.PrintVersionInfo()
		if c.optConfig == "" {
			return nil
		}
	}
	if c.optConfig == "" {
		return fmt.Errorf("missing config option")
	}
	if _, err := os.Stat(c.optConfig); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file \"%s\" not found", c.optConfig)
	}

	initmgr.Register(config.Initializer, c.optConfig)
	if err := initmgr.Init(); err != nil {
		return err
	}
	cfg := &config.Conf
	level := cfg.LogLevel
	if c.LogLevel() != "" {
		level = c.LogLevel()
	}
	initmgr.RegisterWithFuncs(glog.Initialize, glog.Finalize, level, filepath.Base(os.Args[0]))
	initmgr.RegisterWithFuncs(otel.Initialize, otel.Finalize, &cfg.Otel)
	if err := initmgr.Init(); err != nil {
		return err
	}
	if glog.LOG_DEBUG {
		cfg.Dump()
	}
	return run(cfg)
}

func run(cfg *config.Config) (err error) {
	dir := record.NewDirectory(cfg.NumPartitions)
	if err = record.LoadDatabaseFile(cfg.DatabaseFile, dir); err != nil {
		return
	}
	var allow *acl.List
	if cfg.AccessFile != "" {
		if allow, err = acl.LoadFile(cfg.AccessFile); err != nil {
			return
		}
	}
	var saver *autosave.Saver
	if cfg.Autosave.Enabled {
		saver = autosave.NewSaver(dir, &cfg.Autosave)
		if _, rerr := saver.Restore(); rerr != nil {
			glog.Warningf("autosave restore: %s", rerr)
		}
	}

	st := stats.NewStatistics()
	srv, err := server.New(cfg.Config, dir, st, allow)
	if err != nil {
		return
	}
	if err = srv.Listen(); err != nil {
		return
	}
	if err = writePidFile(cfg.PidFileName); err != nil {
		return
	}
	defer os.Remove(cfg.PidFileName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StateLogEnabled {
		var sl stats.StateLog
		sl.Init(cfg.StateLogInterval.Duration, st.States())
		w, werr := stats.NewRotatingFileWriter(cfg.StateLogDir, cfg.StateLogRollKB, cfg.StateLogRolls, sl.GetStates())
		if werr != nil {
			glog.Warningf("state log disabled: %s", werr)
		} else {
			sl.AddStateWriter(w)
			sl.Run()
			defer sl.Quit()
		}
	}

	var wg sync.WaitGroup
	if saver != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			saver.Run(ctx, cfg.Autosave.Interval.Duration)
		}()
	}

	for _, addr := range srv.Addrs() {
		glog.Infof("listening on %s %s", addr.Network(), addr)
	}
	err = srv.Serve(ctx)
	stop()
	wg.Wait()

	var buf bytes.Buffer
	st.WriteSummary(&buf)
	glog.Infof("served %s\n%s", st.Uptime(), buf.String())
	return
}

func writePidFile(name string) error {
	if name == "" {
		return nil
	}
	if err := os.WriteFile(name, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return fmt.Errorf("pid file: %w", err)
	}
	return nil
}
