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

package models

import "time"

// CloudEvent is the CloudEvents 1.0 envelope used for alert transitions
// published to NATS.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	DataContentType string      `json:"datacontenttype"`
	Subject         string      `json:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// AlertEventData is the payload of an alert CloudEvent.
type AlertEventData struct {
	Alert
	Transition string `json:"transition"`
}

// Alert transitions as published on the event bus.
const (
	TransitionActivated = "activated"
	TransitionCleared   = "cleared"
)

// Transition names the state change an alert represents.
func (a Alert) Transition() string {
	if a.Active {
		return TransitionActivated
	}

	return TransitionCleared
}

// StreamEventType names the kind of a StreamEvent.
type StreamEventType string

const (
	StreamSnapshot StreamEventType = "snapshot"
	StreamAlerts   StreamEventType = "alerts"
	StreamHistory  StreamEventType = "history"
)

// StreamEvent is pushed to live subscribers after each published refresh.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	Snapshot  *SnapshotView   `json:"snapshot,omitempty"`
	Alerts    []Alert         `json:"alerts,omitempty"`
	History   *History        `json:"history,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
