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

package alerts

import (
	"context"
	"sync"

	"github.com/carverauto/rigwatch/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/carverauto/rigwatch/pkg/alerts"

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	transitionCounter metric.Int64Counter
)

func initMeter() {
	counter, err := otel.Meter(meterName).Int64Counter(
		"rigwatch_alert_transitions_total",
		metric.WithDescription("Alert activations and clears by rule"),
	)
	if err != nil {
		otel.Handle(err)
	}
	transitionCounter = counter
}

// RecordTransitions counts alert transitions per rule and direction.
func RecordTransitions(ctx context.Context, transitions []models.Alert) {
	if len(transitions) == 0 {
		return
	}

	meterOnce.Do(initMeter)
	if transitionCounter == nil {
		return
	}

	for i := range transitions {
		transitionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("rule", transitions[i].RuleID),
			attribute.String("transition", transitions[i].Transition()),
		))
	}
}
