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

package aggregator

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/carverauto/rigwatch/pkg/aggregator"

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	refreshHistogram metric.Float64Histogram
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	erroredGauge metric.Int64Gauge
)

func initMeter() {
	meter := otel.Meter(meterName)

	hist, err := meter.Float64Histogram(
		"rigwatch_refresh_duration_seconds",
		metric.WithDescription("Wall time of a dashboard refresh cycle"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	refreshHistogram = hist

	gauge, err := meter.Int64Gauge(
		"rigwatch_sources_errored",
		metric.WithDescription("Sources whose last fetch failed"),
	)
	if err != nil {
		otel.Handle(err)
	}
	erroredGauge = gauge
}

func recordRefresh(ctx context.Context, sources, errored int, elapsed time.Duration) {
	if sources == 0 {
		return
	}

	meterOnce.Do(initMeter)

	if refreshHistogram != nil {
		refreshHistogram.Record(ctx, elapsed.Seconds())
	}

	if erroredGauge != nil {
		erroredGauge.Record(ctx, int64(errored))
	}
}
