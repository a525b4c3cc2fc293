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
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

type (
	RequestStat struct {
		mtx       sync.Mutex
		hist      *hdrhistogram.Histogram
		total     time.Duration
		numErrors int64
	}

	// Statistics keeps one latency histogram per request message type
	// plus one for all requests.
	Statistics struct {
		all      RequestStat
		requests map[proto.MessageType]*RequestStat
		tmStart  time.Time

		// Counters below are updated atomically and may be read by a
		// state log from another goroutine.
		NumRequests  uint64
		NumErrors    uint64
		NumPushes    uint64
		NumAccepted  uint64
		NumRejected  uint64
		NumConns     uint32
		NumCallbacks uint32
	}

	StatsData struct {
		NumRequests  int64
		NumErrors    int64
		AvgLatency   time.Duration
		MinLatency   time.Duration
		MaxLatency   time.Duration
		P50Latency   time.Duration
		P99Latency   time.Duration
		P9999Latency time.Duration
	}
)

func (s *RequestStat) Init() {
	s.mtx.Lock()
	if s.hist == nil {
		s.hist = hdrhistogram.New(1, int64(3600*time.Second), 3)
	}
	s.mtx.Unlock()
}

func (s *RequestStat) Put(tm time.Duration, failed bool) {
	if tm < 1 {
		tm = 1
	}
	s.mtx.Lock()
	s.hist.RecordValues(int64(tm), 1)
	s.total += tm
	if failed {
		s.numErrors++
	}
	s.mtx.Unlock()
}

func (s *RequestStat) GetStats() (stat StatsData) {
	s.mtx.Lock()
	stat.NumRequests = s.hist.TotalCount()
	stat.NumErrors = s.numErrors
	stat.MinLatency = time.Duration(s.hist.Min())
	stat.MaxLatency = time.Duration(s.hist.Max())
	stat.P50Latency = time.Duration(s.hist.ValueAtQuantile(50.))
	stat.P99Latency = time.Duration(s.hist.ValueAtQuantile(99.))
	stat.P9999Latency = time.Duration(s.hist.ValueAtQuantile(99.99))
	total := s.total
	s.mtx.Unlock()

	if stat.NumRequests != 0 {
		stat.AvgLatency = total / time.Duration(stat.NumRequests)
	}
	return
}

func (s *RequestStat) Reset() {
	s.mtx.Lock()
	s.hist.Reset()
	s.numErrors = 0
	s.total = 0
	s.mtx.Unlock()
}

func NewStatistics() *Statistics {
	s := &Statistics{
		requests: make(map[proto.MessageType]*RequestStat, len(proto.Requests)),
		tmStart:  time.Now(),
	}
	s.all.Init()
	for _, t := range proto.Requests {
		rs := &RequestStat{}
		rs.Init()
		s.requests[t] = rs
	}
	return s
}

// Put records one handled request. Unknown message types are only
// counted in the totals.
func (s *Statistics) Put(t proto.MessageType, tm time.Duration, st proto.Status) {
	failed := st != proto.StatusSuccess
	atomic.AddUint64(&s.NumRequests, 1)
	if failed {
		atomic.AddUint64(&s.NumErrors, 1)
	}
	s.all.Put(tm, failed)
	if rs, ok := s.requests[t]; ok {
		rs.Put(tm, failed)
	}
}

func (s *Statistics) Get(t proto.MessageType) (stat StatsData, ok bool) {
	rs, ok := s.requests[t]
	if !ok {
		return
	}
	return rs.GetStats(), true
}

func (s *Statistics) Total() StatsData {
	return s.all.GetStats()
}

func (s *Statistics) Uptime() time.Duration {
	return time.Since(s.tmStart)
}

func (s *Statistics) Reset() {
	s.all.Reset()
	for _, rs := range s.requests {
		rs.Reset()
	}
	atomic.StoreUint64(&s.NumRequests, 0)
	atomic.StoreUint64(&s.NumErrors, 0)
	atomic.StoreUint64(&s.NumPushes, 0)
	s.tmStart = time.Now()
}

// States returns the columns written to the state log.
func (s *Statistics) States() []IState {
	return []IState{
		NewUint32State(&s.NumConns, "conns", "number of client connections"),
		NewUint32State(&s.NumCallbacks, "cbs", "number of callbacks"),
		NewUint64DeltaState(&s.NumRequests, "req", "requests since last line"),
		NewUint64DeltaState(&s.NumErrors, "err", "error replies since last line"),
		NewUint64DeltaState(&s.NumPushes, "push", "callback pushes since last line"),
		NewUint64State(&s.NumAccepted, "accepted", "connections accepted"),
		NewGenState("p99", "99th percentile request latency", func() string {
			return s.Total().P99Latency.String()
		}, 10),
	}
}

// WriteSummary prints one line per message type that has seen requests.
func (s *Statistics) WriteSummary(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "type\tcount\terrors\tavg\tmin\tp50\tp99\tmax\t\n")
	row := func(name string, st StatsData) {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t\n", name, st.NumRequests, st.NumErrors,
			st.AvgLatency, st.MinLatency, st.P50Latency, st.P99Latency, st.MaxLatency)
	}
	for _, t := range proto.Requests {
		if st := s.requests[t].GetStats(); st.NumRequests != 0 {
			row(t.String(), st)
		}
	}
	row("all", s.Total())
	tw.Flush()
}
