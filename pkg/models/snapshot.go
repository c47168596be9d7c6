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

// Snapshot is the latest reading per source as of one refresh cycle.
// A published snapshot is never modified; the aggregator replaces it.
type Snapshot struct {
	AsOf     time.Time
	BySource map[string]*Reading
	Errors   map[string]error
}

// EmptySnapshot returns a snapshot with no readings and no errors.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		BySource: map[string]*Reading{},
		Errors:   map[string]error{},
	}
}

// Latest returns the latest reading for a source.
func (s *Snapshot) Latest(sourceID string) (*Reading, bool) {
	if s == nil {
		return nil, false
	}

	r, ok := s.BySource[sourceID]

	return r, ok && r != nil
}

// Err returns the error of the last fetch of a source, if it failed.
func (s *Snapshot) Err(sourceID string) error {
	if s == nil {
		return nil
	}

	return s.Errors[sourceID]
}

// Stale reports whether the source's reading was carried over from an earlier
// cycle because the last fetch failed.
func (s *Snapshot) Stale(sourceID string) bool {
	_, ok := s.Latest(sourceID)

	return ok && s.Err(sourceID) != nil
}
