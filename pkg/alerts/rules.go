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
	"errors"
	"fmt"

	"github.com/carverauto/rigwatch/pkg/models"
)

var (
	errNoRuleID        = errors.New("rule id is required")
	errNoConditions    = errors.New("rule needs at least one condition")
	errUnknownOperator = errors.New("unknown comparison operator")
	errTextField       = errors.New("threshold rules need a numeric field")
	errBadSeverity     = errors.New("unknown severity")
)

// Operator compares a field value to a threshold.
type Operator string

const (
	OpLessOrEqual    Operator = "le"
	OpLess           Operator = "lt"
	OpGreaterOrEqual Operator = "ge"
	OpGreater        Operator = "gt"
	OpEqual          Operator = "eq"
)

// Condition is one comparison. A rule fires when any of its conditions holds.
type Condition struct {
	Op    Operator `json:"op"`
	Value float64  `json:"value"`
}

// RuleConfig is the configuration form of a threshold rule.
type RuleConfig struct {
	ID         string          `json:"id"`
	SourceID   string          `json:"source"`
	Field      string          `json:"field"`
	Conditions []Condition     `json:"when"`
	Severity   models.Severity `json:"severity,omitempty"`
	Title      string          `json:"title,omitempty"`
	Message    string          `json:"message"`
}

// SourceResolver looks up source descriptors by id.
type SourceResolver interface {
	Resolve(id string) (models.SourceDescriptor, error)
}

// DefaultRules are the rig's built-in thresholds: low food stock and an
// unsafe water pH.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			ID:         "food-stock-low",
			SourceID:   "foodLevel",
			Field:      "foodLevel",
			Conditions: []Condition{{Op: OpLessOrEqual, Value: 20}},
			Severity:   models.SeverityError,
			Title:      "Warning",
			Message:    "Food stock is low!",
		},
		{
			ID:       "ph-unsafe",
			SourceID: "pH",
			Field:    "ph",
			Conditions: []Condition{
				{Op: OpLessOrEqual, Value: 6},
				{Op: OpGreater, Value: 8},
			},
			Severity: models.SeverityError,
			Title:    "Warning",
			Message:  "pH level is not safe!",
		},
	}
}

// Compile validates rule configurations against the source registry and
// builds their predicates. Every failure is a *models.ConfigError.
func Compile(cfgs []RuleConfig, resolver SourceResolver) ([]models.AlertRule, error) {
	rules := make([]models.AlertRule, 0, len(cfgs))
	seen := make(map[string]struct{}, len(cfgs))

	for _, cfg := range cfgs {
		rule, err := compileOne(cfg, resolver)
		if err != nil {
			return nil, err
		}

		if _, dup := seen[rule.ID]; dup {
			return nil, &models.ConfigError{Subject: "rule " + rule.ID, Err: ErrDuplicateRule}
		}

		seen[rule.ID] = struct{}{}
		rules = append(rules, rule)
	}

	return rules, nil
}

func compileOne(cfg RuleConfig, resolver SourceResolver) (models.AlertRule, error) {
	subject := fmt.Sprintf("rule %q", cfg.ID)

	if cfg.ID == "" {
		return models.AlertRule{}, &models.ConfigError{Subject: "rule", Err: errNoRuleID}
	}

	src, err := resolver.Resolve(cfg.SourceID)
	if err != nil {
		return models.AlertRule{}, &models.ConfigError{Subject: subject, Err: err}
	}

	field, ok := src.Field(cfg.Field)
	if !ok {
		return models.AlertRule{}, &models.ConfigError{
			Subject: subject,
			Err:     fmt.Errorf("%w: %s.%s", models.ErrUnknownField, cfg.SourceID, cfg.Field),
		}
	}

	if field.Kind != models.FieldNumber {
		return models.AlertRule{}, &models.ConfigError{Subject: subject, Err: errTextField}
	}

	if len(cfg.Conditions) == 0 {
		return models.AlertRule{}, &models.ConfigError{Subject: subject, Err: errNoConditions}
	}

	checks := make([]func(float64) bool, 0, len(cfg.Conditions))

	for _, c := range cfg.Conditions {
		check, err := c.compile()
		if err != nil {
			return models.AlertRule{}, &models.ConfigError{Subject: subject, Err: err}
		}

		checks = append(checks, check)
	}

	severity := cfg.Severity
	switch severity {
	case "":
		severity = models.SeverityWarning
	case models.SeverityInfo, models.SeverityWarning, models.SeverityError:
	default:
		return models.AlertRule{}, &models.ConfigError{Subject: subject, Err: fmt.Errorf("%w: %s", errBadSeverity, severity)}
	}

	return models.AlertRule{
		ID:        cfg.ID,
		SourceID:  cfg.SourceID,
		Field:     cfg.Field,
		Predicate: anyOf(checks),
		Severity:  severity,
		Title:     cfg.Title,
		Message:   cfg.Message,
	}, nil
}

func (c Condition) compile() (func(float64) bool, error) {
	threshold := c.Value

	switch c.Op {
	case OpLessOrEqual:
		return func(v float64) bool { return v <= threshold }, nil
	case OpLess:
		return func(v float64) bool { return v < threshold }, nil
	case OpGreaterOrEqual:
		return func(v float64) bool { return v >= threshold }, nil
	case OpGreater:
		return func(v float64) bool { return v > threshold }, nil
	case OpEqual:
		return func(v float64) bool { return v == threshold }, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownOperator, c.Op)
	}
}

// anyOf builds a predicate that holds when the value is numeric and any
// check passes.
func anyOf(checks []func(float64) bool) func(models.Value) bool {
	return func(v models.Value) bool {
		f, ok := v.Float()
		if !ok {
			return false
		}

		for _, check := range checks {
			if check(f) {
				return true
			}
		}

		return false
	}
}
