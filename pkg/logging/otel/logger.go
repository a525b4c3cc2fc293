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

// Package otel exports server metrics over OTLP/HTTP. Every Record
// function is a no-op until Initialize has installed a meter provider.
package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/instrument/syncint64"
	"go.opentelemetry.io/otel/metric/unit"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	otelCfg "github.com/nbeaver/mx-trunk-sub019/pkg/logging/otel/config"
	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
)

type CMetric int

const (
	Accept CMetric = CMetric(iota)
	Close
	Reject
	CallbackPush
	ProcErr
)

type Tags struct {
	TagName  string
	TagValue string
}

const (
	Operation = string("operation")
	Status    = string("status")
	Reason    = string("reason")
	Network   = string("network")
	Success   = string("Success")
	Error     = string("Error")
)

const MX_METRIC_PREFIX = "mx.server."
const MeterName = "mx-server-meter"

type countMetric struct {
	metricName    string
	metricDesc    string
	counter       syncint64.Counter
	createCounter sync.Once
}

var countMetricMap = map[CMetric]*countMetric{
	Accept:       {metricName: "accept", metricDesc: "Accepted client connections"},
	Close:        {metricName: "close", metricDesc: "Closed client connections"},
	Reject:       {metricName: "reject", metricDesc: "Client connections refused at accept"},
	CallbackPush: {metricName: "callback_push", metricDesc: "Value changed callbacks pushed to clients"},
	ProcErr:      {metricName: "ProcErr", metricDesc: "Requests answered with an error status"},
}

var (
	meterProvider    *metric.MeterProvider
	requestHistogram syncint64.Histogram
	histogramOnce    sync.Once
)

// Initialize is the initmgr entry point. It expects a *config.Config.
func Initialize(args ...interface{}) (err error) {
	if len(args) < 1 {
		err = fmt.Errorf("Otel config argument not as expected")
		glog.Error(err)
		return
	}
	c, ok := args[0].(*otelCfg.Config)
	if !ok {
		err = fmt.Errorf("wrong argument type")
		glog.Error(err)
		return
	}
	c.Dump()
	if c.Enabled {
		err = InitMetricProvider(c)
	}
	return
}

func Finalize() {
	if meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			glog.Warningf("otel shutdown: %s", err)
		}
	}
}

func InitMetricProvider(cfg *otelCfg.Config) error {
	if meterProvider != nil {
		return nil
	}
	ctx := context.Background()
	exp, err := NewHTTPExporter(ctx, cfg)
	if err != nil {
		return err
	}
	reader := metric.NewPeriodicReader(exp, metric.WithInterval(time.Duration(cfg.Resolution)*time.Second))
	meterProvider = metric.NewMeterProvider(
		metric.WithResource(getResourceInfo(cfg)),
		metric.WithReader(reader),
	)
	global.SetMeterProvider(meterProvider)
	glog.Infof("otel metrics exported to %s:%d", cfg.Host, cfg.Port)
	return nil
}

func NewHTTPExporter(ctx context.Context, cfg *otelCfg.Config) (metric.Exporter, error) {
	deltaTemporalitySelector := func(metric.InstrumentKind) metricdata.Temporality { return metricdata.DeltaTemporality }
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		otlpmetrichttp.WithTimeout(7 * time.Second),
		otlpmetrichttp.WithCompression(otlpmetrichttp.NoCompression),
		otlpmetrichttp.WithTemporalitySelector(deltaTemporalitySelector),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 1 * time.Second,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  240 * time.Second,
		}),
	}
	if !cfg.UseTls {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func IsEnabled() bool {
	return meterProvider != nil
}

func getHistogramForRequest() (syncint64.Histogram, error) {
	var err error
	histogramOnce.Do(func() {
		meter := global.Meter(MeterName)
		requestHistogram, err = meter.SyncInt64().Histogram(
			MX_METRIC_PREFIX+"request",
			instrument.WithDescription("Histogram for MX requests"),
			instrument.WithUnit(unit.Milliseconds),
		)
	})
	if requestHistogram == nil {
		return nil, errors.New("request histogram not ready")
	}
	return requestHistogram, err
}

func getCounter(name CMetric) (syncint64.Counter, error) {
	cm, ok := countMetricMap[name]
	if !ok {
		return nil, errors.New("no such counter exists")
	}
	cm.createCounter.Do(func() {
		meter := global.Meter(MeterName)
		cm.counter, _ = meter.SyncInt64().Counter(
			MX_METRIC_PREFIX+cm.metricName,
			instrument.WithDescription(cm.metricDesc),
		)
	})
	if cm.counter == nil {
		return nil, errors.New("counter object not ready")
	}
	return cm.counter, nil
}

// RecordRequest records the handling latency of one request.
func RecordRequest(op string, status string, latency time.Duration) {
	if !IsEnabled() {
		return
	}
	if h, err := getHistogramForRequest(); err == nil {
		h.Record(context.Background(), latency.Milliseconds(),
			attribute.String(Operation, op),
			attribute.String(Status, status),
		)
	}
}

func RecordCount(name CMetric, tags []Tags) {
	if !IsEnabled() {
		return
	}
	counter, err := getCounter(name)
	if err != nil {
		glog.Error(err)
		return
	}
	counter.Add(context.Background(), 1, convertTagsToOTELAttributes(tags)...)
}

func convertTagsToOTELAttributes(tags []Tags) (attr []attribute.KeyValue) {
	attr = make([]attribute.KeyValue, len(tags))
	for i := 0; i < len(tags); i++ {
		attr[i] = attribute.String(tags[i].TagName, tags[i].TagValue)
	}
	return
}

func getResourceInfo(cfg *otelCfg.Config) *resource.Resource {
	hostname, _ := os.Hostname()
	return resource.NewWithAttributes(semconv.SchemaURL,
		semconv.HostNameKey.String(hostname),
		semconv.ServiceNameKey.String(cfg.Poolname),
		attribute.String("environment", cfg.Environment),
		attribute.String("application", cfg.Poolname),
	)
}
