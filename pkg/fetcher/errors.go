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

import "errors"

var (
	ErrInvalidBaseURL    = errors.New("invalid base url")
	ErrUnexpectedStatus  = errors.New("unexpected HTTP status")
	ErrResponseTooLarge  = errors.New("response body exceeds limit")
	ErrNotArray          = errors.New("response is not a JSON array")
	ErrNotObject         = errors.New("element is not a JSON object")
	ErrMissingField      = errors.New("required field missing")
	ErrInvalidTimestamp  = errors.New("timestamp is not ISO 8601")
	ErrInvalidFieldValue = errors.New("field has the wrong type")
)
