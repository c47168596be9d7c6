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

package lifecycle

import (
	"io"
	"os"
	"time"

	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/rs/zerolog"
)

// CreateLogger creates a new logger instance with the provided configuration.
// A nil config falls back to logger.DefaultConfig.
func CreateLogger(config *logger.Config) (logger.Logger, error) {
	zl, err := newZerolog(config)
	if err != nil {
		return nil, err
	}

	return logger.New(zl), nil
}

// CreateComponentLogger creates a logger for a specific component.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	zl, err := newZerolog(config)
	if err != nil {
		return nil, err
	}

	return logger.New(zl.With().Str("component", component).Logger()), nil
}

func newZerolog(config *logger.Config) (zerolog.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	var output io.Writer = os.Stdout
	if config.Output == "stderr" {
		output = os.Stderr
	}

	level := zerolog.InfoLevel
	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return zerolog.Logger{}, err
		}
	}

	timeFormat := time.RFC3339
	if config.TimeFormat != "" {
		timeFormat = config.TimeFormat
	}

	zerolog.TimeFieldFormat = timeFormat

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
