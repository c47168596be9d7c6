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

package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/relvacode/iso8601"
)

const timestampField = "timestamp"

var jsonNull = []byte("null")

// Parse decodes a source response body into readings, in response order.
// An empty array yields no readings and no error.
func Parse(src models.SourceDescriptor, body []byte) ([]models.Reading, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &models.SchemaError{SourceID: src.ID, Index: -1, Err: ErrNotArray}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, &models.SchemaError{SourceID: src.ID, Index: -1, Err: fmt.Errorf("%w: %w", ErrNotArray, err)}
	}

	readings := make([]models.Reading, 0, len(elements))

	for i, raw := range elements {
		reading, err := parseElement(src, i, raw)
		if err != nil {
			return nil, err
		}

		readings = append(readings, reading)
	}

	return readings, nil
}

func parseElement(src models.SourceDescriptor, index int, raw json.RawMessage) (models.Reading, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return models.Reading{}, &models.SchemaError{SourceID: src.ID, Index: index, Err: ErrNotObject}
	}

	schemaErr := func(field string, err error) error {
		return &models.SchemaError{SourceID: src.ID, Index: index, Field: field, Err: err}
	}

	tsRaw, ok := lookup(obj, timestampField, nil)
	if !ok {
		return models.Reading{}, schemaErr(timestampField, ErrMissingField)
	}

	var tsText string
	if err := json.Unmarshal(tsRaw, &tsText); err != nil {
		return models.Reading{}, schemaErr(timestampField, ErrInvalidTimestamp)
	}

	ts, err := iso8601.ParseString(tsText)
	if err != nil {
		return models.Reading{}, schemaErr(timestampField, fmt.Errorf("%w: %w", ErrInvalidTimestamp, err))
	}

	values := make(map[string]models.Value, len(src.Fields))

	for _, field := range src.Fields {
		fieldRaw, ok := lookup(obj, field.Name, field.Aliases)
		if !ok {
			return models.Reading{}, schemaErr(field.Name, ErrMissingField)
		}

		value, err := decodeValue(field.Kind, fieldRaw)
		if err != nil {
			return models.Reading{}, schemaErr(field.Name, err)
		}

		values[field.Name] = value
	}

	return models.Reading{
		SourceID:  src.ID,
		Timestamp: ts,
		Values:    values,
	}, nil
}

// lookup finds a non-null key, trying the canonical name before aliases.
func lookup(obj map[string]json.RawMessage, name string, aliases []string) (json.RawMessage, bool) {
	for _, key := range append([]string{name}, aliases...) {
		raw, ok := obj[key]
		if ok && !bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
			return raw, true
		}
	}

	return nil, false
}

func decodeValue(kind models.FieldKind, raw json.RawMessage) (models.Value, error) {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return models.Value{}, fmt.Errorf("%w: %w", ErrInvalidFieldValue, err)
	}

	switch kind {
	case models.FieldNumber:
		switch v := decoded.(type) {
		case float64:
			return models.NumberValue(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return models.Value{}, fmt.Errorf("%w: %q is not a number", ErrInvalidFieldValue, v)
			}

			return models.NumberValue(f), nil
		}
	default:
		switch v := decoded.(type) {
		case string:
			return models.TextValue(v), nil
		case float64:
			return models.TextValue(strconv.FormatFloat(v, 'f', -1, 64)), nil
		case bool:
			return models.TextValue(strconv.FormatBool(v)), nil
		}
	}

	return models.Value{}, fmt.Errorf("%w: %s", ErrInvalidFieldValue, string(raw))
}
