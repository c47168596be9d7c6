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

package poller

import (
	"fmt"
	"net/url"
	"time"

	"github.com/carverauto/rigwatch/pkg/alerts"
	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/carverauto/rigwatch/pkg/sources"
)

const (
	// DefaultBaseURL is the sensor backend of the feeding rig.
	DefaultBaseURL = "https://petmobile-1.onrender.com/api/"

	defaultServiceName     = "rigwatch"
	defaultListenAddr      = ":8090"
	defaultRefreshInterval = 3 * time.Second
	defaultRequestTimeout  = 10 * time.Second
)

// NATSConfig enables publishing alert transitions to JetStream.
type NATSConfig struct {
	URL           string `json:"url"`
	Domain        string `json:"domain,omitempty"`
	Stream        string `json:"stream,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// HistoryConfig controls the per-source detail targets.
type HistoryConfig struct {
	// Interval is the tick of periodic detail refreshes. Zero means the
	// dashboard refresh interval.
	Interval models.Duration `json:"interval"`
	// Sources lists the sources whose detail view refreshes periodically.
	// Nil means every source; an empty list makes all detail targets manual.
	Sources []string `json:"sources"`
}

// Config represents the engine configuration.
type Config struct {
	ServiceName          string              `json:"service_name"`
	ListenAddr           string              `json:"listen_addr"`
	BaseURL              string              `json:"base_url"`
	RefreshInterval      models.Duration     `json:"refresh_interval"`
	RequestTimeout       models.Duration     `json:"request_timeout"`
	MaxResponseBytes     int64               `json:"max_response_bytes,omitempty"`
	MaxConcurrentFetches int                 `json:"max_concurrent_fetches,omitempty"`
	Timezone             string              `json:"timezone,omitempty"`
	SourcePaths          map[string]string   `json:"source_paths,omitempty"`
	Rules                []alerts.RuleConfig `json:"rules,omitempty"`
	History              HistoryConfig       `json:"history"`
	CORS                 models.CORSConfig   `json:"cors"`
	APIKey               string              `json:"api_key,omitempty"`
	NATS                 *NATSConfig         `json:"nats,omitempty"`
	Logging              *logger.Config      `json:"logging,omitempty"`
}

// resolved is the validated, compiled form of a Config.
type resolved struct {
	registry *sources.Registry
	rules    []models.AlertRule
	location *time.Location
	ticking  map[string]bool
}

// Validate implements config.Validator interface. It applies defaults and
// checks every rule and source reference against the registry.
func (c *Config) Validate() error {
	c.applyDefaults()

	_, err := c.resolve()

	return err
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	if time.Duration(c.RefreshInterval) == 0 {
		c.RefreshInterval = models.Duration(defaultRefreshInterval)
	}

	if time.Duration(c.RequestTimeout) == 0 {
		c.RequestTimeout = models.Duration(defaultRequestTimeout)
	}

	if time.Duration(c.History.Interval) == 0 {
		c.History.Interval = c.RefreshInterval
	}

	if c.Rules == nil {
		c.Rules = alerts.DefaultRules()
	}
}

func (c *Config) resolve() (*resolved, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &models.ConfigError{Subject: "base_url", Err: fmt.Errorf("%w: %q", errInvalidBaseURL, c.BaseURL)}
	}

	for name, d := range map[string]models.Duration{
		"refresh_interval": c.RefreshInterval,
		"request_timeout":  c.RequestTimeout,
		"history.interval": c.History.Interval,
	} {
		if time.Duration(d) < 0 {
			return nil, &models.ConfigError{Subject: name, Err: errNegativeDuration}
		}
	}

	if c.MaxResponseBytes < 0 || c.MaxConcurrentFetches < 0 {
		return nil, &models.ConfigError{Subject: "limits", Err: errNegativeLimit}
	}

	loc := time.Local

	if c.Timezone != "" {
		loc, err = time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, &models.ConfigError{Subject: "timezone", Err: err}
		}
	}

	registry, err := sources.Default().WithPaths(c.SourcePaths)
	if err != nil {
		return nil, err
	}

	rules, err := alerts.Compile(c.Rules, registry)
	if err != nil {
		return nil, err
	}

	ticking := make(map[string]bool)

	if c.History.Sources == nil {
		for _, id := range registry.IDs() {
			ticking[id] = true
		}
	}

	for _, id := range c.History.Sources {
		if _, err := registry.Resolve(id); err != nil {
			return nil, err
		}

		ticking[id] = true
	}

	return &resolved{registry: registry, rules: rules, location: loc, ticking: ticking}, nil
}
