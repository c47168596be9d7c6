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

// FieldKind is the expected JSON type of a source field.
type FieldKind string

const (
	FieldNumber FieldKind = "number"
	FieldText   FieldKind = "text"
)

// FieldSpec describes one value field published by a source.
type FieldSpec struct {
	Name         string    `json:"name"`
	Unit         string    `json:"unit,omitempty"`
	DisplayLabel string    `json:"display_label"`
	Kind         FieldKind `json:"kind"`
	// Aliases are alternative keys some firmware revisions publish the field under.
	Aliases []string `json:"aliases,omitempty"`
}

// SourceDescriptor is the static definition of one sensor endpoint.
type SourceDescriptor struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	EndpointPath string      `json:"endpoint_path"`
	Fields       []FieldSpec `json:"fields"`
	// ChartField is the numeric field plotted in the history series. Empty for
	// sources without a numeric series (RFID).
	ChartField string `json:"chart_field,omitempty"`
	// CountField, when set, aggregates occurrences of the field's values
	// (RFID tag frequency).
	CountField string `json:"count_field,omitempty"`
	// LabelLayout formats series labels; TimeLayout formats the table time column.
	LabelLayout string `json:"label_layout,omitempty"`
	TimeLayout  string `json:"time_layout,omitempty"`
}

// Field returns the spec for name, if the source publishes it.
func (s SourceDescriptor) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return FieldSpec{}, false
}

// Columns returns the table header for the source: one column per field
// followed by the time column.
func (s SourceDescriptor) Columns() []string {
	cols := make([]string, 0, len(s.Fields)+1)
	for _, f := range s.Fields {
		cols = append(cols, f.DisplayLabel)
	}

	return append(cols, "Time")
}

// Clone returns a deep copy so callers cannot alter registry state.
func (s SourceDescriptor) Clone() SourceDescriptor {
	out := s
	out.Fields = make([]FieldSpec, len(s.Fields))

	for i, f := range s.Fields {
		out.Fields[i] = f
		if f.Aliases != nil {
			out.Fields[i].Aliases = append([]string(nil), f.Aliases...)
		}
	}

	return out
}
