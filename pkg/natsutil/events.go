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

// Package natsutil publishes rig events to NATS JetStream as CloudEvents.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// DefaultStream is the JetStream stream alert events are stored in.
	DefaultStream = "RIGWATCH_EVENTS"
	// DefaultSubjectPrefix prefixes every alert subject.
	DefaultSubjectPrefix = "rigwatch.alerts"

	eventSource = "rigwatch/poller"
	alertType   = "com.carverauto.rigwatch.alert"
)

// EventPublisher provides methods for publishing CloudEvents to NATS JetStream.
type EventPublisher struct {
	js            jetstream.JetStream
	stream        string
	subjectPrefix string
	logger        logger.Logger
}

// NewEventPublisher creates a new EventPublisher for the specified stream.
func NewEventPublisher(js jetstream.JetStream, streamName, subjectPrefix string, log logger.Logger) *EventPublisher {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}

	return &EventPublisher{
		js:            js,
		stream:        streamName,
		subjectPrefix: subjectPrefix,
		logger:        logger.Component(log, "nats"),
	}
}

// AlertSubject returns the subject an alert transition is published on:
// <prefix>.<source>.<activated|cleared>.
func (p *EventPublisher) AlertSubject(alert *models.Alert) string {
	return fmt.Sprintf("%s.%s.%s", p.subjectPrefix, alert.SourceID, alert.Transition())
}

// PublishAlert publishes one alert transition and waits for the stream ack.
func (p *EventPublisher) PublishAlert(ctx context.Context, alert *models.Alert) error {
	ts := alert.TriggeredAt
	if !alert.Active && !alert.ClearedAt.IsZero() {
		ts = alert.ClearedAt
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            alertType + "." + alert.Transition(),
		DataContentType: "application/json",
		Subject:         p.AlertSubject(alert),
		Time:            &ts,
		Data:            models.AlertEventData{Alert: *alert, Transition: alert.Transition()},
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published alert event")

	return nil
}

// Connect dials NATS with connection handlers that report through log.
func Connect(natsURL string, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	log = logger.Component(log, "nats")

	opts := []nats.Option{
		nats.Name("rigwatch"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

// CreateEventPublisher creates an EventPublisher on an existing connection,
// creating the stream or extending its subjects so alert subjects are kept.
func CreateEventPublisher(
	ctx context.Context, nc *nats.Conn, domain, streamName, subjectPrefix string, log logger.Logger,
) (*EventPublisher, error) {
	var (
		js  jetstream.JetStream
		err error
	)

	if domain != "" {
		js, err = jetstream.NewWithDomain(nc, domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if streamName == "" {
		streamName = DefaultStream
	}

	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}

	if err := ensureStream(ctx, js, streamName, subjectPrefix+".>"); err != nil {
		return nil, err
	}

	return NewEventPublisher(js, streamName, subjectPrefix, log), nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, streamName, subject string) error {
	stream, err := js.Stream(ctx, streamName)

	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		return nil
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	cfg := stream.CachedInfo().Config

	subjects := ensureSubjectList(cfg.Subjects, subject)
	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to extend stream %s subjects: %w", streamName, err)
	}

	return nil
}

// ensureSubjectList appends subject unless an existing pattern already
// covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, existing := range subjects {
		if matchesSubject(existing, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern covers subject using NATS token
// wildcards. A literal ">" in subject only matches ">" or a ">" pattern.
func matchesSubject(pattern, subject string) bool {
	pTokens := strings.Split(pattern, ".")
	sTokens := strings.Split(subject, ".")

	for i, p := range pTokens {
		if p == ">" {
			return len(sTokens) > i
		}

		if i >= len(sTokens) {
			return false
		}

		if p == "*" && sTokens[i] == ">" {
			return false
		}

		if p != "*" && p != sTokens[i] {
			return false
		}
	}

	return len(pTokens) == len(sTokens)
}
