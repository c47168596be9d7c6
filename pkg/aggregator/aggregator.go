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

// Package aggregator fans out one fetch per source and merges the results
// into the latest-value Snapshot.
package aggregator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves the readings of one source.
type Fetcher interface {
	Fetch(ctx context.Context, src models.SourceDescriptor) ([]models.Reading, error)
}

// Aggregator owns the current snapshot. Refresh is the only writer; any
// number of readers may call Current concurrently.
type Aggregator struct {
	fetcher Fetcher
	logger  logger.Logger
	limit   int
	now     func() time.Time

	mu      sync.Mutex // serializes Refresh
	current atomic.Pointer[models.Snapshot]
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency caps the number of fetches in flight during one refresh.
// Zero or less means one goroutine per source.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		a.limit = n
	}
}

// WithNow overrides the clock used for Snapshot.AsOf.
func WithNow(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an aggregator whose current snapshot starts empty.
func New(fetcher Fetcher, log logger.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher: fetcher,
		logger:  logger.Component(log, "aggregator"),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.current.Store(models.EmptySnapshot())

	return a
}

// Current returns the last published snapshot. It is never nil and must not
// be modified.
func (a *Aggregator) Current() *models.Snapshot {
	return a.current.Load()
}

type fetchResult struct {
	sourceID string
	readings []models.Reading
	err      error
}

// Refresh fetches every source concurrently and waits for all of them to
// settle. One source failing never cancels or fails the others: a failed
// source keeps its previous reading and gets an entry in Snapshot.Errors.
// Sources not named in srcs are carried over unchanged.
//
// The merged snapshot is published unless ctx ended while fetching, in which
// case it is returned without replacing the current one.
func (a *Aggregator) Refresh(ctx context.Context, srcs []models.SourceDescriptor) *models.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.now()
	srcs = dedupe(srcs)
	results := make(chan fetchResult, len(srcs))

	var g errgroup.Group
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}

	for _, src := range srcs {
		g.Go(func() error {
			readings, err := a.fetcher.Fetch(ctx, src)
			results <- fetchResult{sourceID: src.ID, readings: readings, err: err}

			return nil
		})
	}

	_ = g.Wait()
	close(results)

	next := a.merge(a.current.Load(), results)
	next.AsOf = a.now()

	recordRefresh(ctx, len(srcs), len(next.Errors), next.AsOf.Sub(start))

	a.logger.Debug().
		Int("sources", len(srcs)).
		Int("present", len(next.BySource)).
		Int("errors", len(next.Errors)).
		Msg("Refresh cycle settled")

	if ctx.Err() != nil {
		a.logger.Debug().Err(ctx.Err()).Msg("Refresh cancelled, snapshot not published")
		return next
	}

	a.current.Store(next)

	return next
}

func (a *Aggregator) merge(prev *models.Snapshot, results <-chan fetchResult) *models.Snapshot {
	next := &models.Snapshot{
		BySource: make(map[string]*models.Reading, len(prev.BySource)),
		Errors:   make(map[string]error, len(prev.Errors)),
	}

	for id, r := range prev.BySource {
		next.BySource[id] = r
	}

	for id, err := range prev.Errors {
		next.Errors[id] = err
	}

	for res := range results {
		if res.err != nil {
			next.Errors[res.sourceID] = res.err

			a.logger.Warn().
				Err(res.err).
				Str("source", res.sourceID).
				Bool("stale", next.BySource[res.sourceID] != nil).
				Msg("Source fetch failed, keeping last known reading")

			continue
		}

		delete(next.Errors, res.sourceID)

		if latest, ok := Latest(res.readings); ok {
			next.BySource[res.sourceID] = latest
		} else {
			delete(next.BySource, res.sourceID)
		}
	}

	return next
}

// Latest returns the reading with the greatest timestamp. Ties go to the
// reading that appears later in the slice. The returned pointer refers to a
// copy.
func Latest(readings []models.Reading) (*models.Reading, bool) {
	if len(readings) == 0 {
		return nil, false
	}

	best := 0

	for i := 1; i < len(readings); i++ {
		if !readings[i].Timestamp.Before(readings[best].Timestamp) {
			best = i
		}
	}

	latest := readings[best]

	return &latest, true
}

func dedupe(srcs []models.SourceDescriptor) []models.SourceDescriptor {
	seen := make(map[string]struct{}, len(srcs))
	out := make([]models.SourceDescriptor, 0, len(srcs))

	for _, src := range srcs {
		if _, dup := seen[src.ID]; dup {
			continue
		}

		seen[src.ID] = struct{}{}
		out = append(out, src)
	}

	return out
}
