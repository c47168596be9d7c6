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

package sources

import "github.com/carverauto/rigwatch/pkg/models"

// Source ids of the feeding rig.
const (
	FoodWeight = "cellFood"
	CatWeight  = "cellWeight"
	PH         = "pH"
	RFID       = "rfid"
	FoodLevel  = "foodLevel"
	WaterLevel = "waterLevel"
)

const (
	// DateTimeLayout renders a timestamp like "1/2/2024, 3:04:05 PM".
	DateTimeLayout = "1/2/2006, 3:04:05 PM"
	// DateLayout renders a timestamp like "1/2/2024".
	DateLayout = "1/2/2006"
)

func unitField(label string) models.FieldSpec {
	return models.FieldSpec{Name: "unit", DisplayLabel: label, Kind: models.FieldText}
}

// Catalog returns the descriptors of the six rig sensors.
func Catalog() []models.SourceDescriptor {
	return []models.SourceDescriptor{
		{
			ID:           FoodWeight,
			Title:        "Food Weight",
			EndpointPath: "loadcell-food-data",
			Fields: []models.FieldSpec{
				{Name: "weight", Unit: "g", DisplayLabel: "Food Weight", Kind: models.FieldNumber},
				unitField("Unit"),
			},
			ChartField:  "weight",
			LabelLayout: DateTimeLayout,
			TimeLayout:  DateTimeLayout,
		},
		{
			ID:           CatWeight,
			Title:        "Cat Weight",
			EndpointPath: "loadcell-data",
			Fields: []models.FieldSpec{
				{Name: "weight", Unit: "kg", DisplayLabel: "Cat Weight", Kind: models.FieldNumber, Aliases: []string{"weightScale"}},
				unitField("Unit"),
			},
			ChartField:  "weight",
			LabelLayout: DateTimeLayout,
			TimeLayout:  DateTimeLayout,
		},
		{
			ID:           PH,
			Title:        "pH Level",
			EndpointPath: "ph-data",
			Fields: []models.FieldSpec{
				{Name: "ph", Unit: "pH", DisplayLabel: "pH", Kind: models.FieldNumber},
				{Name: "category", DisplayLabel: "Category", Kind: models.FieldText},
				unitField("Unit"),
			},
			ChartField:  "ph",
			LabelLayout: DateTimeLayout,
			TimeLayout:  DateTimeLayout,
		},
		{
			ID:           RFID,
			Title:        "RFID",
			EndpointPath: "rfid-data",
			Fields: []models.FieldSpec{
				{Name: "uid", DisplayLabel: "UID", Kind: models.FieldText},
			},
			CountField: "uid",
			TimeLayout: DateTimeLayout,
		},
		{
			ID:           FoodLevel,
			Title:        "Food Level",
			EndpointPath: "foodlevel-data",
			Fields: []models.FieldSpec{
				{Name: "foodLevel", Unit: "g", DisplayLabel: "Food", Kind: models.FieldNumber},
				unitField("Unit"),
			},
			ChartField:  "foodLevel",
			LabelLayout: DateTimeLayout,
			TimeLayout:  DateTimeLayout,
		},
		{
			ID:           WaterLevel,
			Title:        "Water Level",
			EndpointPath: "waterlevel-data",
			Fields: []models.FieldSpec{
				{Name: "waterLevel", Unit: "%", DisplayLabel: "Water", Kind: models.FieldNumber},
				unitField("Unit"),
			},
			ChartField:  "waterLevel",
			LabelLayout: DateLayout,
			TimeLayout:  DateTimeLayout,
		},
	}
}

// Default returns a registry of the rig catalog.
func Default() *Registry {
	r, err := NewRegistry(Catalog()...)
	if err != nil {
		panic(err) // the built-in catalog is valid
	}

	return r
}
