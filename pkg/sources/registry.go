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

// Package sources holds the static catalog of sensor endpoints.
package sources

import (
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/rigwatch/pkg/models"
)

var (
	errEmptySourceID    = errors.New("source id is required")
	errDuplicateSource  = errors.New("duplicate source id")
	errEmptyEndpoint    = errors.New("endpoint path is required")
	errNoFields         = errors.New("source must declare at least one field")
	errChartFieldNumber = errors.New("chart field must be a numeric field")
)

// Registry is an immutable, ordered set of source descriptors.
type Registry struct {
	ordered []models.SourceDescriptor
	byID    map[string]int
}

// NewRegistry validates the descriptors and builds a registry that preserves
// their order.
func NewRegistry(descs ...models.SourceDescriptor) (*Registry, error) {
	r := &Registry{
		ordered: make([]models.SourceDescriptor, 0, len(descs)),
		byID:    make(map[string]int, len(descs)),
	}

	for _, d := range descs {
		if err := validate(d); err != nil {
			return nil, &models.ConfigError{Subject: "source " + d.ID, Err: err}
		}

		if _, dup := r.byID[d.ID]; dup {
			return nil, &models.ConfigError{Subject: "source " + d.ID, Err: errDuplicateSource}
		}

		r.byID[d.ID] = len(r.ordered)
		r.ordered = append(r.ordered, d.Clone())
	}

	return r, nil
}

func validate(d models.SourceDescriptor) error {
	if strings.TrimSpace(d.ID) == "" {
		return errEmptySourceID
	}

	if strings.TrimSpace(d.EndpointPath) == "" {
		return errEmptyEndpoint
	}

	if len(d.Fields) == 0 {
		return errNoFields
	}

	if d.ChartField != "" {
		f, ok := d.Field(d.ChartField)
		if !ok || f.Kind != models.FieldNumber {
			return fmt.Errorf("%w: %s", errChartFieldNumber, d.ChartField)
		}
	}

	if d.CountField != "" {
		if _, ok := d.Field(d.CountField); !ok {
			return fmt.Errorf("%w: %s", models.ErrUnknownField, d.CountField)
		}
	}

	return nil
}

// List returns every descriptor in registration order.
func (r *Registry) List() []models.SourceDescriptor {
	out := make([]models.SourceDescriptor, len(r.ordered))
	for i, d := range r.ordered {
		out[i] = d.Clone()
	}

	return out
}

// Resolve returns the descriptor for id or a ConfigError wrapping
// models.ErrUnknownSource.
func (r *Registry) Resolve(id string) (models.SourceDescriptor, error) {
	idx, ok := r.byID[id]
	if !ok {
		return models.SourceDescriptor{}, &models.ConfigError{
			Subject: fmt.Sprintf("source %q", id),
			Err:     models.ErrUnknownSource,
		}
	}

	return r.ordered[idx].Clone(), nil
}

// WithPaths returns a copy of the registry with endpoint paths replaced for
// the given source ids. Unknown ids are a ConfigError.
func (r *Registry) WithPaths(paths map[string]string) (*Registry, error) {
	descs := r.List()

	for id, path := range paths {
		idx, ok := r.byID[id]
		if !ok {
			return nil, &models.ConfigError{Subject: fmt.Sprintf("source_paths[%q]", id), Err: models.ErrUnknownSource}
		}

		descs[idx].EndpointPath = path
	}

	return NewRegistry(descs...)
}

// IDs returns the source ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.ordered))
	for i, d := range r.ordered {
		ids[i] = d.ID
	}

	return ids
}
