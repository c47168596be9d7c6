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
	"encoding/json"
	"strconv"
	"time"
)

// Value is a single field value of a reading: either a number or a string.
type Value struct {
	num     float64
	text    string
	numeric bool
}

// NumberValue wraps a numeric field value.
func NumberValue(f float64) Value {
	return Value{num: f, numeric: true}
}

// TextValue wraps a string field value.
func TextValue(s string) Value {
	return Value{text: s}
}

// IsNumber reports whether the value was published as a number.
func (v Value) IsNumber() bool {
	return v.numeric
}

// Float returns the numeric value. Text values that parse as a float are
// accepted as well.
func (v Value) Float() (float64, bool) {
	if v.numeric {
		return v.num, true
	}

	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

func (v Value) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}

	return v.text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return json.Marshal(v.num)
	}

	return json.Marshal(v.text)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch typed := raw.(type) {
	case float64:
		*v = NumberValue(typed)
	case string:
		*v = TextValue(typed)
	default:
		*v = TextValue(string(b))
	}

	return nil
}

// Reading is one timestamped measurement from a source. Readings are built by
// the fetcher and never modified afterwards.
type Reading struct {
	SourceID  string           `json:"source_id"`
	Timestamp time.Time        `json:"timestamp"`
	Values    map[string]Value `json:"values"`
}

// Value returns the named field value.
func (r *Reading) Value(field string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}

	v, ok := r.Values[field]

	return v, ok
}
