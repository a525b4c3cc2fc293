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
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
)

type (
	IState interface {
		Header() string
		FullHeader() string
		State() string
		CollectData()
		Width() int
	}

	StateBase struct {
		header     string
		fullHeader string
	}

	Uint32State struct {
		StateBase
		addr  *uint32
		value uint32
	}

	Uint64State struct {
		StateBase
		addr  *uint64
		value uint64
	}

	// Uint64DeltaState reports how much a counter moved since the
	// previous report.
	Uint64DeltaState struct {
		Uint64State
		lastValue uint64
	}

	GenState struct {
		StateBase
		Value func() string
		width int
	}

	IStatesWriter interface {
		Write(now time.Time) error
		Close() error
	}

	StateLog struct {
		states   []IState
		writers  []IStatesWriter
		interval time.Duration
		quitOnce sync.Once
		chQuit   chan struct{}
		wg       sync.WaitGroup
	}
)

func (s *StateBase) FullHeader() string {
	return s.fullHeader
}

func (s *StateBase) Header() string {
	return s.header
}

func NewUint32State(addr *uint32, header string, fullHeader string) *Uint32State {
	return &Uint32State{
		StateBase: StateBase{
			header:     header,
			fullHeader: fullHeader,
		},
		addr: addr,
	}
}

func (s *Uint32State) State() string {
	return fmt.Sprintf("%v", s.value)
}

func (s *Uint32State) CollectData() {
	s.value = atomic.LoadUint32(s.addr)
}

func (s *Uint32State) Width() int {
	if len(s.header) > 6 {
		return len(s.header)
	}
	return 6
}

func NewUint64State(addr *uint64, header string, fullHeader string) *Uint64State {
	return &Uint64State{
		StateBase: StateBase{
			header:     header,
			fullHeader: fullHeader,
		},
		addr: addr,
	}
}

func (s *Uint64State) State() string {
	return fmt.Sprintf("%v", s.value)
}

func (s *Uint64State) CollectData() {
	s.value = atomic.LoadUint64(s.addr)
}

func (s *Uint64State) Width() int {
	if len(s.header) > 8 {
		return len(s.header)
	}
	return 8
}

func NewUint64DeltaState(addr *uint64, header string, fullHeader string) *Uint64DeltaState {
	return &Uint64DeltaState{
		Uint64State: Uint64State{
			StateBase: StateBase{
				header:     header,
				fullHeader: fullHeader,
			},
			addr: addr,
		},
	}
}

func (s *Uint64DeltaState) State() string {
	delta := s.value - s.lastValue
	s.lastValue = s.value
	return fmt.Sprintf("%v", delta)
}

func (s *Uint64DeltaState) Width() int {
	if len(s.header) > 5 {
		return len(s.header)
	}
	return 5
}

func NewGenState(header string, fullHeader string, v func() string, width int) *GenState {
	st := &GenState{
		StateBase: StateBase{
			header:     header,
			fullHeader: fullHeader,
		},
		Value: v,
		width: width,
	}
	if len(st.header) > st.width {
		st.width = len(st.header)
	}
	return st
}

func (s *GenState) State() string {
	return s.Value()
}

func (s *GenState) CollectData() {
	// do nothing
}

func (s *GenState) Width() int {
	return s.width
}

// FormatHeader renders the column headers of states.
func FormatHeader(states []IState) string {
	var buf bytes.Buffer
	for _, i := range states {
		fmt.Fprintf(&buf, "%*s ", i.Width(), i.Header())
	}
	return buf.String()
}

// FormatStates renders the collected values of states.
func FormatStates(states []IState) string {
	var buf bytes.Buffer
	for _, i := range states {
		fmt.Fprintf(&buf, "%*s ", i.Width(), i.State())
	}
	return buf.String()
}

func (l *StateLog) Init(interval time.Duration, states []IState) {
	if interval <= 0 {
		interval = time.Second
	}
	l.interval = interval
	l.states = states
	l.chQuit = make(chan struct{})
}

func (l *StateLog) AddStateWriter(w IStatesWriter) {
	l.writers = append(l.writers, w)
}

func (l *StateLog) GetStates() []IState {
	return l.states
}

func (l *StateLog) AddState(st IState) {
	l.states = append(l.states, st)
}

func (l *StateLog) Run() {
	l.wg.Add(1)
	go l.write()
}

// WriteOnce collects every state and hands the snapshot to the writers.
func (l *StateLog) WriteOnce(now time.Time) {
	for _, i := range l.states {
		i.CollectData()
	}
	for _, w := range l.writers {
		if err := w.Write(now); err != nil {
			glog.Warningf("state log write: %s", err)
		}
	}
}

func (l *StateLog) write() {
	ticker := time.NewTicker(l.interval)
	defer func() {
		ticker.Stop()
		for _, w := range l.writers {
			w.Close()
		}
		l.wg.Done()
	}()

	for {
		select {
		case <-l.chQuit:
			glog.Verbosef("statelog writer quit")
			return

		case now := <-ticker.C:
			l.WriteOnce(now)
		}
	}
}

// Quit stops the writer and waits until its outputs are closed.
func (l *StateLog) Quit() {
	l.quitOnce.Do(func() {
		close(l.chQuit)
	})
	l.wg.Wait()
}
