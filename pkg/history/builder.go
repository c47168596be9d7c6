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

// Package history turns a source's reading array into the table rows and
// chart series of its detail view.
package history

import (
	"sort"
	"time"

	"github.com/carverauto/rigwatch/pkg/models"
)

const defaultLayout = time.RFC3339

// Builder projects readings into a History. It is stateless apart from the
// display location and is safe for concurrent use.
type Builder struct {
	loc *time.Location
	now func() time.Time
}

// NewBuilder returns a builder that renders timestamps in loc. A nil loc
// means time.Local.
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}

	return &Builder{loc: loc, now: time.Now}
}

// Build sorts readings newest first and derives rows, the chart series and
// (for counted sources) tag frequencies from that same order. Series and
// rows share the descending order; the series is not re-sorted ascending.
// The input slice is not modified.
func (b *Builder) Build(src models.SourceDescriptor, readings []models.Reading) models.History {
	sorted := SortNewestFirst(readings)

	h := models.History{
		SourceID: src.ID,
		Columns:  src.Columns(),
		Series: models.TimeSeries{
			Labels: make([]string, 0, len(sorted)),
			Points: make([]float64, 0, len(sorted)),
		},
		Rows:    make([]models.TableRow, 0, len(sorted)),
		BuiltAt: b.now(),
	}

	timeLayout := layoutOr(src.TimeLayout)
	labelLayout := layoutOr(src.LabelLayout)

	for i := range sorted {
		r := &sorted[i]
		h.Rows = append(h.Rows, b.row(src, r, timeLayout))

		if src.ChartField == "" {
			continue
		}

		v, ok := r.Value(src.ChartField)
		if !ok {
			continue
		}

		point, ok := v.Float()
		if !ok {
			continue
		}

		h.Series.Labels = append(h.Series.Labels, r.Timestamp.In(b.loc).Format(labelLayout))
		h.Series.Points = append(h.Series.Points, point)
	}

	if src.CountField != "" {
		h.Counts = CountValues(sorted, src.CountField)
	}

	return h
}

func (b *Builder) row(src models.SourceDescriptor, r *models.Reading, layout string) models.TableRow {
	row := make(models.TableRow, 0, len(src.Fields)+1)

	for _, f := range src.Fields {
		v, _ := r.Value(f.Name)
		row = append(row, v.String())
	}

	return append(row, r.Timestamp.In(b.loc).Format(layout))
}

func layoutOr(layout string) string {
	if layout == "" {
		return defaultLayout
	}

	return layout
}

// SortNewestFirst returns a copy of readings sorted by timestamp descending.
// Readings with equal timestamps keep their original relative order.
func SortNewestFirst(readings []models.Reading) []models.Reading {
	sorted := make([]models.Reading, len(readings))
	copy(sorted, readings)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	return sorted
}

// CountValues tallies how often each value of field occurs, in order of first
// appearance.
func CountValues(readings []models.Reading, field string) []models.UIDCount {
	counts := make([]models.UIDCount, 0)
	index := make(map[string]int)

	for i := range readings {
		v, ok := readings[i].Value(field)
		if !ok {
			continue
		}

		key := v.String()
		if pos, seen := index[key]; seen {
			counts[pos].Count++
			continue
		}

		index[key] = len(counts)
		counts = append(counts, models.UIDCount{Value: key, Count: 1})
	}

	return counts
}
