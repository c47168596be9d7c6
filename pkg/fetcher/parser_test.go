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
	"errors"
	"testing"

	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/carverauto/rigwatch/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsAliasesAndNumericStrings(t *testing.T) {
	body := []byte(`[
		{"weightScale":"4.2","unit":"kg","timestamp":"2024-03-05T10:00:00+02:00"},
		{"weight":4.4,"weightScale":9,"unit":"kg","timestamp":"2024-03-05T10:05:00Z"}
	]`)

	readings, err := Parse(resolve(t, sources.CatWeight), body)
	require.NoError(t, err)
	require.Len(t, readings, 2)

	first, _ := readings[0].Value("weight")
	f, ok := first.Float()
	require.True(t, ok)
	assert.True(t, first.IsNumber())
	assert.InDelta(t, 4.2, f, 0.0001)

	second, _ := readings[1].Value("weight")
	f, _ = second.Float()
	assert.InDelta(t, 4.4, f, 0.0001, "canonical name wins over the alias")
}

func TestParseRFIDNumericUIDBecomesText(t *testing.T) {
	readings, err := Parse(resolve(t, sources.RFID), []byte(`[{"uid":12345,"timestamp":"2024-03-05T10:00:00Z"}]`))
	require.NoError(t, err)

	uid, _ := readings[0].Value("uid")
	assert.False(t, uid.IsNumber())
	assert.Equal(t, "12345", uid.String())
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		body   string
		want   error
		index  int
		field  string
	}{
		{name: "object body", source: sources.PH, body: `{"ph":7}`, want: ErrNotArray, index: -1},
		{name: "empty body", source: sources.PH, body: ``, want: ErrNotArray, index: -1},
		{name: "truncated array", source: sources.PH, body: `[{"ph":7}`, want: ErrNotArray, index: -1},
		{name: "scalar element", source: sources.RFID, body: `["A1"]`, want: ErrNotObject, index: 0},
		{
			name: "missing timestamp", source: sources.RFID,
			body: `[{"uid":"A1","timestamp":"2024-01-01T00:00:00Z"},{"uid":"B2"}]`,
			want: ErrMissingField, index: 1, field: "timestamp",
		},
		{
			name: "bad timestamp", source: sources.RFID,
			body: `[{"uid":"A1","timestamp":"yesterday"}]`,
			want: ErrInvalidTimestamp, index: 0, field: "timestamp",
		},
		{
			name: "missing category", source: sources.PH,
			body: `[{"ph":7.1,"unit":"pH","timestamp":"2024-01-01T00:00:00Z"}]`,
			want: ErrMissingField, index: 0, field: "category",
		},
		{
			name: "null value", source: sources.WaterLevel,
			body: `[{"waterLevel":null,"unit":"%","timestamp":"2024-01-01T00:00:00Z"}]`,
			want: ErrMissingField, index: 0, field: "waterLevel",
		},
		{
			name: "non numeric level", source: sources.FoodLevel,
			body: `[{"foodLevel":"lots","unit":"g","timestamp":"2024-01-01T00:00:00Z"}]`,
			want: ErrInvalidFieldValue, index: 0, field: "foodLevel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(resolve(t, tt.source), []byte(tt.body))
			require.ErrorIs(t, err, tt.want)

			var schemaErr *models.SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.source, schemaErr.SourceID)
			assert.Equal(t, tt.index, schemaErr.Index)
			assert.Equal(t, tt.field, schemaErr.Field)
		})
	}
}
