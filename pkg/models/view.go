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
	"time"
)

// Error kinds reported in a SourceStatus.
const (
	ErrorKindTransport = "transport"
	ErrorKindSchema    = "schema"
	ErrorKindOther     = "other"
)

// SourceStatus is the presentation form of one source in a snapshot.
type SourceStatus struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Present   bool     `json:"present"`
	Stale     bool     `json:"stale"`
	Reading   *Reading `json:"reading,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorKind string   `json:"error_kind,omitempty"`
}

// SnapshotView is a Snapshot rendered for JSON consumers, in registry order.
type SnapshotView struct {
	AsOf    time.Time      `json:"as_of"`
	Sources []SourceStatus `json:"sources"`
}

// View renders the snapshot for the given sources. Sources without a reading
// are listed with Present false.
func (s *Snapshot) View(srcs []SourceDescriptor) SnapshotView {
	view := SnapshotView{Sources: make([]SourceStatus, 0, len(srcs))}
	if s != nil {
		view.AsOf = s.AsOf
	}

	for _, src := range srcs {
		status := SourceStatus{ID: src.ID, Title: src.Title}

		if r, ok := s.Latest(src.ID); ok {
			status.Present = true
			status.Reading = r
		}

		if err := s.Err(src.ID); err != nil {
			status.Stale = status.Present
			status.Error = err.Error()
			status.ErrorKind = errorKind(err)
		}

		view.Sources = append(view.Sources, status)
	}

	return view
}

func errorKind(err error) string {
	var (
		transportErr *TransportError
		schemaErr    *SchemaError
	)

	switch {
	case errors.As(err, &transportErr):
		return ErrorKindTransport
	case errors.As(err, &schemaErr):
		return ErrorKindSchema
	default:
		return ErrorKindOther
	}
}

// CORSConfig lists the origins allowed to call the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}
