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

// Package scheduler drives periodic and manual refreshes of a target with at
// most one fetch in flight.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/rigwatch/pkg/logger"
)

// ErrStopped is returned by Start after Stop has been called.
var ErrStopped = errors.New("target stopped")

// State is the fetch state of a target.
type State int32

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	if s == Fetching {
		return "fetching"
	}

	return "idle"
}

// FetchFunc produces one result for a target.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// PublishFunc receives each completed fetch while the target is still live.
type PublishFunc[T any] func(result T, err error)

// Target is one scheduled unit: the dashboard or a single detail view.
// A periodic tick and a manual Trigger share the same Idle -> Fetching ->
// Idle transition, so a trigger that arrives while a fetch is in flight is
// dropped rather than queued.
type Target[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	publish  PublishFunc[T]
	clock    Clock
	logger   logger.Logger

	state    atomic.Int32
	reloadCh chan time.Duration

	mu      sync.Mutex // serializes Trigger against Stop so wg.Add never races Wait
	pubMu   sync.Mutex // orders publishes against teardown
	stopped atomic.Bool
	started atomic.Bool
	wg      sync.WaitGroup

	runCtx    context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewTarget creates a target. An interval of zero or less disables the
// periodic tick; the target then only fetches on Trigger.
func NewTarget[T any](
	name string, interval time.Duration, clock Clock, log logger.Logger, fetch FetchFunc[T], publish PublishFunc[T],
) *Target[T] {
	if clock == nil {
		clock = RealClock{}
	}

	if publish == nil {
		publish = func(T, error) {}
	}

	runCtx, cancel := context.WithCancel(context.Background())

	return &Target[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		publish:  publish,
		clock:    clock,
		logger:   logger.Component(log, "scheduler"),
		reloadCh: make(chan time.Duration, 1),
		runCtx:   runCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Name returns the target name.
func (t *Target[T]) Name() string {
	return t.name
}

// State returns the current fetch state.
func (t *Target[T]) State() State {
	return State(t.state.Load())
}

// Trigger starts a fetch if the target is idle. It returns false when the
// trigger was dropped because a fetch is already in flight or the target
// has been stopped.
func (t *Target[T]) Trigger() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped.Load() {
		return false
	}

	if !t.state.CompareAndSwap(int32(Idle), int32(Fetching)) {
		recordTrigger(t.runCtx, t.name, false)
		t.logger.Debug().Str("target", t.name).Msg("Fetch in flight, trigger dropped")

		return false
	}

	recordTrigger(t.runCtx, t.name, true)

	t.wg.Add(1)

	go t.run()

	return true
}

func (t *Target[T]) run() {
	defer t.wg.Done()

	start := t.clock.Now()
	result, err := t.fetch(t.runCtx)

	t.pubMu.Lock()
	defer t.pubMu.Unlock()

	if t.stopped.Load() {
		t.logger.Debug().Str("target", t.name).Msg("Target stopped, discarding fetch result")
		t.state.Store(int32(Idle))

		return
	}

	t.publish(result, err)
	t.state.Store(int32(Idle))

	t.logger.Debug().
		Str("target", t.name).
		Dur("elapsed", t.clock.Now().Sub(start)).
		Bool("failed", err != nil).
		Msg("Fetch completed")
}

// SetInterval changes the tick interval of a running target.
func (t *Target[T]) SetInterval(d time.Duration) {
	select {
	case t.reloadCh <- d:
	default:
		// replace a pending reload with the newer one
		select {
		case <-t.reloadCh:
		default:
		}

		select {
		case t.reloadCh <- d:
		default:
			// another caller refilled the slot; its interval wins
		}
	}
}

func (t *Target[T]) newTicker(d time.Duration) Ticker {
	if d <= 0 {
		return idleTicker{}
	}

	return t.clock.Ticker(d)
}

// Start runs an initial fetch and then triggers one fetch per tick until ctx
// ends or Stop is called. Targets without an interval skip the initial fetch.
// It blocks.
func (t *Target[T]) Start(ctx context.Context) error {
	if t.stopped.Load() {
		return ErrStopped
	}

	ticker := t.newTicker(t.interval)

	defer func() {
		ticker.Stop()
	}()

	t.logger.Info().Str("target", t.name).Dur("interval", t.interval).Msg("Starting refresh target")

	// manual targets only fetch on Trigger
	if t.interval > 0 {
		t.Trigger()
	}

	t.started.Store(true)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.done:
			return nil
		case <-ticker.Chan():
			t.Trigger()
		case d := <-t.reloadCh:
			ticker.Stop()
			ticker = t.newTicker(d)
			t.interval = d
			t.logger.Info().Str("target", t.name).Dur("interval", d).Msg("Refresh interval reloaded")
		}
	}
}

// Stop ends the tick loop, cancels an in-flight fetch and waits for it to
// return. Its result is discarded. Stop is idempotent.
func (t *Target[T]) Stop(ctx context.Context) error {
	t.mu.Lock()
	t.pubMu.Lock()
	t.stopped.Store(true)
	t.pubMu.Unlock()
	t.mu.Unlock()

	t.closeOnce.Do(func() {
		close(t.done)
		t.cancel()
	})

	waited := make(chan struct{})

	go func() {
		t.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
