/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fetcher

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/carverauto/rigwatch/pkg/fetcher"

	metricFetchTotal   = "rigwatch_fetch_total"
	metricFetchLatency = "rigwatch_fetch_latency_seconds"
	metricReadings     = "rigwatch_fetch_readings_total"

	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeSchema    = "schema_error"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	fetchCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	readingCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	latencyHistogram metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(meterName)

	counter, err := meter.Int64Counter(
		metricFetchTotal,
		metric.WithDescription("Sensor source fetches by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	fetchCounter = counter

	readings, err := meter.Int64Counter(
		metricReadings,
		metric.WithDescription("Readings parsed from sensor sources"),
	)
	if err != nil {
		otel.Handle(err)
	}
	readingCounter = readings

	hist, err := meter.Float64Histogram(
		metricFetchLatency,
		metric.WithDescription("Latency of sensor source requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	latencyHistogram = hist
}

func recordFetch(ctx context.Context, sourceID, outcome string, elapsed time.Duration, readings int) {
	meterOnce.Do(initMeter)

	attrs := metric.WithAttributes(
		attribute.String("source", sourceID),
		attribute.String("outcome", outcome),
	)

	if fetchCounter != nil {
		fetchCounter.Add(ctx, 1, attrs)
	}

	if latencyHistogram != nil {
		latencyHistogram.Record(ctx, elapsed.Seconds(), attrs)
	}

	if readingCounter != nil && readings > 0 {
		readingCounter.Add(ctx, int64(readings), metric.WithAttributes(attribute.String("source", sourceID)))
	}
}
