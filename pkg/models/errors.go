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

import (
	"errors"
	"fmt"
)

var (
	errInvalidDuration = errors.New("invalid duration")

	// ErrUnknownSource is wrapped by ConfigError when a rule or request names
	// a source that is not in the registry.
	ErrUnknownSource = errors.New("unknown source")
	// ErrUnknownField is wrapped by ConfigError when a rule names a field the
	// source does not publish.
	ErrUnknownField = errors.New("unknown field")
)

// TransportError reports a failed request to a sensor source: the network
// call failed, timed out or returned a non-success status. It is recoverable;
// the next scheduled refresh retries the source.
type TransportError struct {
	SourceID   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error for source %s (status %d): %v", e.SourceID, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("transport error for source %s: %v", e.SourceID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError reports a response that is not a JSON array, or an element
// that lacks a required field. Index is -1 when the whole body is rejected.
type SchemaError struct {
	SourceID string
	Index    int
	Field    string
	Err      error
}

func (e *SchemaError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("schema error for source %s: %v", e.SourceID, e.Err)
	case e.Field != "":
		return fmt.Sprintf("schema error for source %s at element %d, field %q: %v", e.SourceID, e.Index, e.Field, e.Err)
	default:
		return fmt.Sprintf("schema error for source %s at element %d: %v", e.SourceID, e.Index, e.Err)
	}
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ConfigError is a startup validation failure. It is never produced while
// the engine is running.
type ConfigError struct {
	Subject string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %v", e.Subject, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool {
	var target *SchemaError
	return errors.As(err, &target)
}
