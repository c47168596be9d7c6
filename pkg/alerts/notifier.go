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
	"errors"
	"fmt"

	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
)

// Notifier delivers alert transitions. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, transitions []models.Alert) error
}

// LogNotifier writes each transition to the structured log.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Component(log, "alerts")}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, transitions []models.Alert) error {
	for i := range transitions {
		a := &transitions[i]

		if a.Active {
			n.logger.Warn().
				Str("rule", a.RuleID).
				Str("source", a.SourceID).
				Str("severity", string(a.Severity)).
				Str("value", a.Value.String()).
				Msg(a.Message)

			continue
		}

		n.logger.Info().
			Str("rule", a.RuleID).
			Str("source", a.SourceID).
			Str("value", a.Value.String()).
			Msg("Alert cleared")
	}

	return nil
}

// MultiNotifier fans transitions out to every notifier and joins their errors.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, transitions []models.Alert) error {
	var errs []error

	for _, n := range m {
		if err := n.Notify(ctx, transitions); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// AlertPublisher sends one alert transition to an event bus.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *models.Alert) error
}

// EventNotifier publishes every transition through an AlertPublisher, such
// as the NATS JetStream event publisher.
type EventNotifier struct {
	publisher AlertPublisher
}

// NewEventNotifier creates an EventNotifier.
func NewEventNotifier(publisher AlertPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

// Notify implements Notifier. Publishing continues past failures.
func (n *EventNotifier) Notify(ctx context.Context, transitions []models.Alert) error {
	var errs []error

	for i := range transitions {
		if err := n.publisher.PublishAlert(ctx, &transitions[i]); err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", transitions[i].RuleID, err))
		}
	}

	return errors.Join(errs...)
}
