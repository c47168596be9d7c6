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
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/carverauto/rigwatch/pkg/alerts"
	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, "rigwatch", cfg.ServiceName)
	assert.Equal(t, 3*time.Second, time.Duration(cfg.RefreshInterval))
	assert.Equal(t, 10*time.Second, time.Duration(cfg.RequestTimeout))
	assert.Equal(t, 3*time.Second, time.Duration(cfg.History.Interval))
	assert.Equal(t, alerts.DefaultRules(), cfg.Rules)
}

func TestConfig_JSON(t *testing.T) {
	jsonConfig := `{
		"listen_addr": ":9090",
		"base_url": "http://rig.local/api/",
		"refresh_interval": "PT5S",
		"request_timeout": "2s",
		"timezone": "UTC",
		"source_paths": {"pH": "ph-v2"},
		"history": {"sources": ["rfid"]},
		"rules": [
			{"id": "water-low", "source": "waterLevel", "field": "waterLevel", "when": [{"op": "lt", "value": 15}]}
		],
		"nats": {"url": "nats://127.0.0.1:4222", "domain": "edge"},
		"logging": {
			"level": "debug",
			"otel": {"enabled": true, "endpoint": "localhost:4317", "export_interval": "30s"}
		}
	}`

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(jsonConfig), &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, time.Duration(cfg.RefreshInterval))
	assert.Equal(t, 5*time.Second, time.Duration(cfg.History.Interval), "history interval follows the refresh interval")
	assert.Equal(t, 2*time.Second, time.Duration(cfg.RequestTimeout))
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "waterLevel", cfg.Rules[0].SourceID)
	require.NotNil(t, cfg.NATS)
	assert.Equal(t, "edge", cfg.NATS.Domain)
	require.NotNil(t, cfg.Logging)
	assert.True(t, cfg.Logging.OTel.Enabled)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.Logging.OTel.ExportInterval))

	plan, err := cfg.resolve()
	require.NoError(t, err)

	ph, err := plan.registry.Resolve("pH")
	require.NoError(t, err)
	assert.Equal(t, "ph-v2", ph.EndpointPath)
	assert.Equal(t, map[string]bool{"rfid": true}, plan.ticking)
	assert.Equal(t, time.UTC, plan.location)
}

func TestConfig_HistorySourcesDefaultToAll(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	plan, err := cfg.resolve()
	require.NoError(t, err)
	assert.Len(t, plan.ticking, 6)

	cfg.History.Sources = []string{}
	plan, err = cfg.resolve()
	require.NoError(t, err)
	assert.Empty(t, plan.ticking)
}

func TestConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.BaseURL = "api/" },
			wantErr: errInvalidBaseURL,
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.RefreshInterval = models.Duration(-time.Second) },
			wantErr: errNegativeDuration,
		},
		{
			name:    "negative concurrency",
			mutate:  func(c *Config) { c.MaxConcurrentFetches = -1 },
			wantErr: errNegativeLimit,
		},
		{
			name:    "rule on unknown source",
			mutate:  func(c *Config) { c.Rules = []alerts.RuleConfig{{ID: "x", SourceID: "humidity", Field: "h", Conditions: []alerts.Condition{{Op: alerts.OpGreater, Value: 1}}}} },
			wantErr: models.ErrUnknownSource,
		},
		{
			name:    "rule on unknown field",
			mutate:  func(c *Config) { c.Rules = []alerts.RuleConfig{{ID: "x", SourceID: "pH", Field: "temp", Conditions: []alerts.Condition{{Op: alerts.OpGreater, Value: 1}}}} },
			wantErr: models.ErrUnknownField,
		},
		{
			name:    "history for unknown source",
			mutate:  func(c *Config) { c.History.Sources = []string{"humidity"} },
			wantErr: models.ErrUnknownSource,
		},
		{
			name:    "path for unknown source",
			mutate:  func(c *Config) { c.SourcePaths = map[string]string{"humidity": "humidity-data"} },
			wantErr: models.ErrUnknownSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			require.ErrorIs(t, err, tt.wantErr)

			var cfgErr *models.ConfigError
			assert.True(t, errors.As(err, &cfgErr), "validation failures are config errors")
		})
	}
}

func TestConfig_InvalidTimezone(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus_Mons"}

	var cfgErr *models.ConfigError
	require.ErrorAs(t, cfg.Validate(), &cfgErr)
	assert.Equal(t, "timezone", cfgErr.Subject)
}
