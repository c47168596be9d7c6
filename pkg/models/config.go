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
	"fmt"
	"strings"
	"time"

	isoduration "github.com/sosodev/duration"
)

// Duration is a time.Duration that reads numbers (nanoseconds), Go duration
// strings ("3s") and ISO 8601 durations ("PT3S") from JSON.
type Duration time.Duration

// MarshalJSON writes the duration in Go duration notation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := parseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	if strings.HasPrefix(strings.ToUpper(value), "P") {
		iso, err := isoduration.Parse(strings.ToUpper(value))
		if err != nil {
			return 0, err
		}

		return iso.ToTimeDuration(), nil
	}

	return time.ParseDuration(value)
}
