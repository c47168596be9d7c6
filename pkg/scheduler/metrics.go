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

package scheduler

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/carverauto/rigwatch/pkg/scheduler"

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	triggerCounter metric.Int64Counter
)

func initMeter() {
	counter, err := otel.Meter(meterName).Int64Counter(
		"rigwatch_refresh_triggers_total",
		metric.WithDescription("Refresh triggers per target, accepted or dropped while a fetch was in flight"),
	)
	if err != nil {
		otel.Handle(err)
	}
	triggerCounter = counter
}

func recordTrigger(ctx context.Context, target string, accepted bool) {
	meterOnce.Do(initMeter)
	if triggerCounter == nil {
		return
	}

	outcome := "dropped"
	if accepted {
		outcome = "accepted"
	}

	triggerCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("outcome", outcome),
	))
}
