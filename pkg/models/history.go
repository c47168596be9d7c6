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

// TimeSeries is a chart-ready series. Labels and Points are index aligned.
type TimeSeries struct {
	Labels []string  `json:"labels"`
	Points []float64 `json:"points"`
}

// Len returns the number of points in the series.
func (t TimeSeries) Len() int {
	return len(t.Points)
}

// TableRow is one reading projected to display strings, one cell per column.
type TableRow []string

// UIDCount is the number of times a tag value was seen.
type UIDCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// History is the detail view of one source: rows newest first and a series in
// the same order.
type History struct {
	SourceID string     `json:"source_id"`
	Columns  []string   `json:"columns"`
	Series   TimeSeries `json:"series"`
	Rows     []TableRow `json:"rows"`
	Counts   []UIDCount `json:"counts,omitempty"`
	BuiltAt  time.Time  `json:"built_at"`
}

// Empty reports whether the history holds no readings.
func (h History) Empty() bool {
	return len(h.Rows) == 0
}
