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

// Severity mirrors the levels used by the notification sinks.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// AlertRule is a compiled threshold rule against one field of one source.
type AlertRule struct {
	ID        string
	SourceID  string
	Field     string
	Predicate func(Value) bool
	Severity  Severity
	Title     string
	Message   string
}

// Alert is a rule breach. Active alerts are held by the evaluator until the
// predicate stops holding; a cleared alert carries ClearedAt.
type Alert struct {
	RuleID      string    `json:"rule_id"`
	SourceID    string    `json:"source_id"`
	Field       string    `json:"field"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Value       Value     `json:"value"`
	TriggeredAt time.Time `json:"triggered_at"`
	ClearedAt   time.Time `json:"cleared_at,omitempty"`
	Active      bool      `json:"active"`
}
