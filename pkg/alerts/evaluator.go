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

// Package alerts evaluates threshold rules against snapshots and fans alert
// transitions out to notifiers.
package alerts

import (
	"errors"
	"sort"
	"time"

	"github.com/carverauto/rigwatch/pkg/models"
)

var (
	// ErrDuplicateRule is returned when two rules share an id.
	ErrDuplicateRule = errors.New("duplicate rule id")
	errNilPredicate  = errors.New("rule has no predicate")
)

// State is the set of currently active alerts keyed by rule id. A State is
// never modified after Evaluate returns it.
type State struct {
	active map[string]models.Alert
}

// NewState returns a state with no active alerts.
func NewState() State {
	return State{active: map[string]models.Alert{}}
}

// IsActive reports whether the rule is currently in breach.
func (s State) IsActive(ruleID string) bool {
	_, ok := s.active[ruleID]
	return ok
}

// Active returns the active alerts ordered by trigger time, then rule id.
func (s State) Active() []models.Alert {
	out := make([]models.Alert, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].TriggeredAt.Equal(out[j].TriggeredAt) {
			return out[i].TriggeredAt.Before(out[j].TriggeredAt)
		}

		return out[i].RuleID < out[j].RuleID
	})

	return out
}

// Len returns the number of active alerts.
func (s State) Len() int {
	return len(s.active)
}

// Evaluator holds the compiled rule set.
type Evaluator struct {
	rules []models.AlertRule
	now   func() time.Time
}

// NewEvaluator checks that rule ids are unique and every rule has a predicate.
func NewEvaluator(rules []models.AlertRule) (*Evaluator, error) {
	seen := make(map[string]struct{}, len(rules))

	for _, r := range rules {
		if _, dup := seen[r.ID]; dup {
			return nil, &models.ConfigError{Subject: "rule " + r.ID, Err: ErrDuplicateRule}
		}

		if r.Predicate == nil {
			return nil, &models.ConfigError{Subject: "rule " + r.ID, Err: errNilPredicate}
		}

		seen[r.ID] = struct{}{}
	}

	return &Evaluator{
		rules: append([]models.AlertRule(nil), rules...),
		now:   time.Now,
	}, nil
}

// Rules returns a copy of the rule set.
func (e *Evaluator) Rules() []models.AlertRule {
	return append([]models.AlertRule(nil), e.rules...)
}

// Evaluate compares every rule against the snapshot and returns the
// transitions since prev together with the next state. Entering a breach
// yields one alert with Active set; leaving it yields one with Active false
// and ClearedAt set. A rule that stays in breach produces nothing. A rule
// whose source has no reading, or whose field is missing or non-numeric,
// keeps its previous state.
func (e *Evaluator) Evaluate(snap *models.Snapshot, prev State) ([]models.Alert, State) {
	at := e.now()
	if snap != nil && !snap.AsOf.IsZero() {
		at = snap.AsOf
	}

	next := State{active: make(map[string]models.Alert, len(prev.active))}

	var transitions []models.Alert

	for _, rule := range e.rules {
		current, wasActive := prev.active[rule.ID]

		value, ok := ruleValue(snap, rule)
		if !ok {
			if wasActive {
				next.active[rule.ID] = current
			}

			continue
		}

		breached := rule.Predicate(value)

		switch {
		case breached && !wasActive:
			alert := models.Alert{
				RuleID:      rule.ID,
				SourceID:    rule.SourceID,
				Field:       rule.Field,
				Severity:    rule.Severity,
				Title:       rule.Title,
				Message:     rule.Message,
				Value:       value,
				TriggeredAt: at,
				Active:      true,
			}

			next.active[rule.ID] = alert
			transitions = append(transitions, alert)
		case breached && wasActive:
			current.Value = value
			next.active[rule.ID] = current
		case !breached && wasActive:
			cleared := current
			cleared.Value = value
			cleared.Active = false
			cleared.ClearedAt = at

			transitions = append(transitions, cleared)
		}
	}

	return transitions, next
}

func ruleValue(snap *models.Snapshot, rule models.AlertRule) (models.Value, bool) {
	reading, ok := snap.Latest(rule.SourceID)
	if !ok {
		return models.Value{}, false
	}

	value, ok := reading.Value(rule.Field)
	if !ok {
		return models.Value{}, false
	}

	if _, numeric := value.Float(); !numeric {
		return models.Value{}, false
	}

	return value, true
}

// Activations filters transitions down to newly active alerts.
func Activations(transitions []models.Alert) []models.Alert {
	out := make([]models.Alert, 0, len(transitions))

	for _, a := range transitions {
		if a.Active {
			out = append(out, a)
		}
	}

	return out
}
