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

// Package glog puts level checks in front of github.com/golang/glog so
// that disabled log statements cost one branch.
package glog

import (
	"flag"
	"fmt"
	"strings"

	"github.com/golang/glog"
)

type Verbose bool

// default is LOG_INFO
var (
	LOG_ERROR   Verbose = true
	LOG_WARN    Verbose = true
	LOG_INFO    Verbose = true
	LOG_DEBUG   Verbose = false
	LOG_VERBOSE Verbose = false

	appName string
)

// Initialize is the initmgr entry point. It expects the log level and the
// application name.
func Initialize(args ...interface{}) (err error) {
	if len(args) < 2 {
		err = fmt.Errorf("two arguments expected")
		return
	}
	var level, name string
	var ok bool
	if level, ok = args[0].(string); !ok {
		err = fmt.Errorf("a string log level expected")
		return
	}
	if name, ok = args[1].(string); !ok {
		err = fmt.Errorf("a string appname expected")
		return
	}
	InitLogging(level, name)
	return
}

func Finalize() {
	glog.Flush()
}

func Flush() {
	glog.Flush()
}

// InitLogging maps error|warning|info|debug|verbose onto glog verbosity
// 1 to 5 and logs to stderr.
func InitLogging(level string, name string) {
	appName = name
	if f := flag.Lookup("logtostderr"); f != nil {
		f.Value.Set("true")
	}
	SetLevel(level)
}

func SetLevel(level string) {
	var v int
	switch strings.ToLower(level) {
	case "error":
		v = 1
	case "warning", "warn":
		v = 2
	case "debug":
		v = 4
	case "verbose":
		v = 5
	default:
		v = 3
	}
	if f := flag.Lookup("v"); f != nil {
		f.Value.Set(fmt.Sprint(v))
	}
	LOG_ERROR = v >= 1
	LOG_WARN = v >= 2
	LOG_INFO = v >= 3
	LOG_DEBUG = v >= 4
	LOG_VERBOSE = v >= 5
}

func prefix(s string) string {
	if appName == "" {
		return s
	}
	return "[" + appName + "] " + s
}

func Info(args ...interface{}) {
	if LOG_INFO {
		glog.InfoDepth(1, prefix(fmt.Sprint(args...)))
	}
}

func Infof(format string, args ...interface{}) {
	if LOG_INFO {
		glog.InfoDepth(1, prefix(fmt.Sprintf(format, args...)))
	}
}

func Warning(args ...interface{}) {
	if LOG_WARN {
		glog.WarningDepth(1, prefix(fmt.Sprint(args...)))
	}
}

func Warningf(format string, args ...interface{}) {
	if LOG_WARN {
		glog.WarningDepth(1, prefix(fmt.Sprintf(format, args...)))
	}
}

func Error(args ...interface{}) {
	if LOG_ERROR {
		glog.ErrorDepth(1, prefix(fmt.Sprint(args...)))
	}
}

func Errorf(format string, args ...interface{}) {
	if LOG_ERROR {
		glog.ErrorDepth(1, prefix(fmt.Sprintf(format, args...)))
	}
}

func Debugf(format string, args ...interface{}) {
	if LOG_DEBUG {
		glog.InfoDepth(1, prefix("DEBUG "+fmt.Sprintf(format, args...)))
	}
}

func Verbosef(format string, args ...interface{}) {
	if LOG_VERBOSE {
		glog.InfoDepth(1, prefix("VERBOSE "+fmt.Sprintf(format, args...)))
	}
}

func Fatalf(format string, args ...interface{}) {
	glog.FatalDepth(1, prefix(fmt.Sprintf(format, args...)))
}

func Exitf(format string, args ...interface{}) {
	glog.ExitDepth(1, prefix(fmt.Sprintf(format, args...)))
}
