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

package history

import (
	"testing"
	"time"

	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/carverauto/rigwatch/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 2, hour, minute, 0, 0, time.UTC)
}

func phReading(ts time.Time, ph float64, category string) models.Reading {
	return models.Reading{
		SourceID:  sources.PH,
		Timestamp: ts,
		Values: map[string]models.Value{
			"ph":       models.NumberValue(ph),
			"category": models.TextValue(category),
			"unit":     models.TextValue("pH"),
		},
	}
}

func source(t *testing.T, id string) models.SourceDescriptor {
	t.Helper()

	src, err := sources.Default().Resolve(id)
	require.NoError(t, err)

	return src
}

func TestBuildSortsNewestFirstAndAlignsSeries(t *testing.T) {
	readings := []models.Reading{
		phReading(at(9, 0), 7.0, "neutral"),
		phReading(at(15, 30), 5.5, "acidic"),
		phReading(at(12, 0), 8.4, "alkaline"),
	}

	h := NewBuilder(time.UTC).Build(source(t, sources.PH), readings)

	assert.Equal(t, []string{"pH", "Category", "Unit", "Time"}, h.Columns)
	require.Len(t, h.Rows, 3)
	assert.Equal(t, models.TableRow{"5.5", "acidic", "pH", "1/2/2024, 3:30:00 PM"}, h.Rows[0])
	assert.Equal(t, models.TableRow{"8.4", "alkaline", "pH", "1/2/2024, 12:00:00 PM"}, h.Rows[1])
	assert.Equal(t, models.TableRow{"7", "neutral", "pH", "1/2/2024, 9:00:00 AM"}, h.Rows[2])

	assert.Equal(t, []float64{5.5, 8.4, 7.0}, h.Series.Points)
	assert.Equal(t, []string{"1/2/2024, 3:30:00 PM", "1/2/2024, 12:00:00 PM", "1/2/2024, 9:00:00 AM"}, h.Series.Labels)
	assert.Nil(t, h.Counts)

	assert.Equal(t, at(9, 0), readings[0].Timestamp, "input is not reordered")
}

func TestBuildIsStableForEqualTimestamps(t *testing.T) {
	readings := []models.Reading{
		phReading(at(10, 0), 6.1, "a"),
		phReading(at(11, 0), 6.2, "b"),
		phReading(at(10, 0), 6.3, "c"),
		phReading(at(10, 0), 6.4, "d"),
	}

	h := NewBuilder(time.UTC).Build(source(t, sources.PH), readings)

	assert.Equal(t, []float64{6.2, 6.1, 6.3, 6.4}, h.Series.Points)
}

func TestBuildEmptyInput(t *testing.T) {
	h := NewBuilder(time.UTC).Build(source(t, sources.WaterLevel), nil)

	assert.True(t, h.Empty())
	assert.Zero(t, h.Series.Len())
	assert.NotNil(t, h.Rows)
	assert.Equal(t, []string{"Water", "Unit", "Time"}, h.Columns)
}

func TestBuildWaterUsesDateLabels(t *testing.T) {
	readings := []models.Reading{{
		SourceID:  sources.WaterLevel,
		Timestamp: at(18, 45),
		Values: map[string]models.Value{
			"waterLevel": models.NumberValue(64),
			"unit":       models.TextValue("%"),
		},
	}}

	h := NewBuilder(time.UTC).Build(source(t, sources.WaterLevel), readings)

	assert.Equal(t, []string{"1/2/2024"}, h.Series.Labels)
	assert.Equal(t, models.TableRow{"64", "%", "1/2/2024, 6:45:00 PM"}, h.Rows[0])
}

func TestBuildRFIDCountsTags(t *testing.T) {
	tag := func(ts time.Time, uid string) models.Reading {
		return models.Reading{SourceID: sources.RFID, Timestamp: ts, Values: map[string]models.Value{"uid": models.TextValue(uid)}}
	}

	readings := []models.Reading{
		tag(at(8, 0), "A1"),
		tag(at(9, 0), "B2"),
		tag(at(10, 0), "A1"),
		tag(at(7, 0), "C3"),
	}

	h := NewBuilder(time.UTC).Build(source(t, sources.RFID), readings)

	assert.Equal(t, []string{"UID", "Time"}, h.Columns)
	assert.Zero(t, h.Series.Len())
	assert.Equal(t, []models.UIDCount{{Value: "A1", Count: 2}, {Value: "B2", Count: 1}, {Value: "C3", Count: 1}}, h.Counts)
	assert.Equal(t, models.TableRow{"A1", "1/2/2024, 10:00:00 AM"}, h.Rows[0])
}

func TestBuildRendersInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	h := NewBuilder(loc).Build(source(t, sources.PH), []models.Reading{phReading(at(23, 0), 7, "neutral")})

	assert.Equal(t, "1/3/2024, 1:00:00 AM", h.Rows[0][3])
}
