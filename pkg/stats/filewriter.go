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

package stats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jrick/logrotate/rotator"
)

const kHeaderEveryLines = 23

var _ IStatesWriter = (*FileWriter)(nil)

// FileWriter appends one line of state values per write and repeats the
// column headers every kHeaderEveryLines lines.
type FileWriter struct {
	cnt    int
	states []IState
	header string
	writer io.WriteCloser
}

func NewFileWriter(w io.WriteCloser, states []IState) *FileWriter {
	return &FileWriter{
		writer: w,
		states: states,
		header: FormatHeader(states),
	}
}

// NewRotatingFileWriter writes state.log under dir. The file is rolled
// at thresholdKB and maxRolls compressed rolls are kept.
func NewRotatingFileWriter(dir string, thresholdKB int64, maxRolls int, states []IState) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	r, err := rotator.New(filepath.Join(dir, "state.log"), thresholdKB, true, maxRolls)
	if err != nil {
		return nil, fmt.Errorf("state log rotator: %w", err)
	}
	return NewFileWriter(r, states), nil
}

func (w *FileWriter) Write(now time.Time) error {
	ts := now.Format("01-02 15:04:05")
	if w.cnt%kHeaderEveryLines == 0 {
		if _, err := fmt.Fprintf(w.writer, "%s %s\n", ts, w.header); err != nil {
			return err
		}
	}
	w.cnt++
	_, err := fmt.Fprintf(w.writer, "%s %s\n", ts, FormatStates(w.states))
	return err
}

func (w *FileWriter) Close() error {
	return w.writer.Close()
}
