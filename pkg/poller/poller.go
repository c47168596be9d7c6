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

// Package poller is the rigwatch engine: it drives the dashboard and detail
// refresh targets, evaluates alert rules against each published snapshot and
// pushes results to live subscribers.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/rigwatch/pkg/aggregator"
	"github.com/carverauto/rigwatch/pkg/alerts"
	"github.com/carverauto/rigwatch/pkg/fetcher"
	"github.com/carverauto/rigwatch/pkg/history"
	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/carverauto/rigwatch/pkg/natsutil"
	"github.com/carverauto/rigwatch/pkg/scheduler"
	"github.com/carverauto/rigwatch/pkg/sources"
	"github.com/nats-io/nats.go"
)

const (
	dashboardTarget = "dashboard"
	notifyTimeout   = 5 * time.Second
)

// SourceFetcher retrieves the readings of one source.
type SourceFetcher interface {
	Fetch(ctx context.Context, src models.SourceDescriptor) ([]models.Reading, error)
}

// Poller represents the rigwatch engine.
type Poller struct {
	config    Config
	registry  *sources.Registry
	fetcher   SourceFetcher
	agg       *aggregator.Aggregator
	evaluator *alerts.Evaluator
	builder   *history.Builder
	notifier  alerts.Notifier
	extra     []alerts.Notifier
	clock     scheduler.Clock
	logger    logger.Logger

	dashboard *scheduler.Target[*models.Snapshot]
	details   map[string]*scheduler.Target[models.History]

	alertMu    sync.RWMutex
	alertState alerts.State

	histMu    sync.RWMutex
	histories map[string]models.History

	subMu  sync.Mutex
	subs   map[chan models.StreamEvent]struct{}
	closed bool

	natsConn  *nats.Conn
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Poller.
type Option func(*Poller)

// WithFetcher replaces the HTTP fetcher built from the config.
func WithFetcher(f SourceFetcher) Option {
	return func(p *Poller) {
		p.fetcher = f
	}
}

// WithNotifier adds a notifier for alert transitions next to the log
// notifier.
func WithNotifier(n alerts.Notifier) Option {
	return func(p *Poller) {
		p.extra = append(p.extra, n)
	}
}

// New creates a new engine. The config is validated; every failure is a
// *models.ConfigError except NATS connection errors.
func New(ctx context.Context, config *Config, clock scheduler.Clock, log logger.Logger, opts ...Option) (*Poller, error) {
	if clock == nil {
		clock = scheduler.RealClock{}
	}

	config.applyDefaults()

	plan, err := config.resolve()
	if err != nil {
		return nil, err
	}

	p := &Poller{
		config:     *config,
		registry:   plan.registry,
		builder:    history.NewBuilder(plan.location),
		clock:      clock,
		logger:     logger.Component(log, "poller"),
		details:    make(map[string]*scheduler.Target[models.History]),
		alertState: alerts.NewState(),
		histories:  make(map[string]models.History),
		subs:       make(map[chan models.StreamEvent]struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		f, err := fetcher.New(config.BaseURL, log,
			fetcher.WithTimeout(time.Duration(config.RequestTimeout)),
			fetcher.WithMaxBodyBytes(config.MaxResponseBytes),
		)
		if err != nil {
			return nil, &models.ConfigError{Subject: "base_url", Err: err}
		}

		p.fetcher = f
	}

	p.evaluator, err = alerts.NewEvaluator(plan.rules)
	if err != nil {
		return nil, &models.ConfigError{Subject: "rules", Err: err}
	}

	p.agg = aggregator.New(p.fetcher, log,
		aggregator.WithConcurrency(config.MaxConcurrentFetches),
		aggregator.WithNow(clock.Now),
	)

	notifiers := alerts.MultiNotifier{alerts.NewLogNotifier(log)}

	if config.NATS != nil && config.NATS.URL != "" {
		publisher, err := p.connectEvents(ctx, log)
		if err != nil {
			return nil, err
		}

		notifiers = append(notifiers, alerts.NewEventNotifier(publisher))
	}

	p.notifier = append(notifiers, p.extra...)

	p.dashboard = scheduler.NewTarget[*models.Snapshot](dashboardTarget, time.Duration(config.RefreshInterval), clock, log,
		p.fetchDashboard, p.publishDashboard)

	for _, src := range p.registry.List() {
		var interval time.Duration
		if plan.ticking[src.ID] {
			interval = time.Duration(config.History.Interval)
		}

		p.details[src.ID] = scheduler.NewTarget[models.History]("detail:"+src.ID, interval, clock, log,
			p.fetchDetail(src), p.publishDetail(src.ID))
	}

	return p, nil
}

func (p *Poller) connectEvents(ctx context.Context, log logger.Logger) (*natsutil.EventPublisher, error) {
	cfg := p.config.NATS

	nc, err := natsutil.Connect(cfg.URL, log)
	if err != nil {
		return nil, err
	}

	publisher, err := natsutil.CreateEventPublisher(ctx, nc, cfg.Domain, cfg.Stream, cfg.SubjectPrefix, log)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create alert event publisher: %w", err)
	}

	p.natsConn = nc
	p.logger.Info().Str("url", cfg.URL).Str("domain", cfg.Domain).Msg("Publishing alert transitions to NATS")

	return publisher, nil
}

// Start implements the lifecycle.Service interface. It blocks until ctx ends
// or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info().
		Int("sources", len(p.details)).
		Dur("interval", time.Duration(p.config.RefreshInterval)).
		Str("base_url", p.config.BaseURL).
		Msg("Starting rigwatch engine")

	for id, target := range p.details {
		p.wg.Add(1)

		go func() {
			defer p.wg.Done()

			if err := target.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Warn().Err(err).Str("source", id).Msg("Detail target ended")
			}
		}()
	}

	return p.dashboard.Start(ctx)
}

// Stop implements the lifecycle.Service interface. In-flight fetches are
// cancelled and their results discarded.
func (p *Poller) Stop(ctx context.Context) error {
	var errs []error

	if err := p.dashboard.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("dashboard: %w", err))
	}

	for id, target := range p.details {
		if err := target.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("detail %s: %w", id, err))
		}
	}

	p.wg.Wait()

	p.closeOnce.Do(func() {
		p.closeSubscribers()

		if p.natsConn != nil {
			if err := p.natsConn.Drain(); err != nil {
				errs = append(errs, fmt.Errorf("%w: nats: %w", errClosing, err))
			}
		}
	})

	p.logger.Info().Msg("Rigwatch engine stopped")

	return errors.Join(errs...)
}

// SetRefreshInterval changes the dashboard refresh interval while running.
func (p *Poller) SetRefreshInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", errInvalidInterval, d)
	}

	p.dashboard.SetInterval(d)

	p.logger.Info().Dur("interval", d).Msg("Dashboard refresh interval changed")

	return nil
}

// Sources returns the source descriptors in display order.
func (p *Poller) Sources() []models.SourceDescriptor {
	return p.registry.List()
}

// Snapshot returns the last published snapshot.
func (p *Poller) Snapshot() *models.Snapshot {
	return p.agg.Current()
}

// SnapshotView renders the last published snapshot for every source.
func (p *Poller) SnapshotView() models.SnapshotView {
	return p.agg.Current().View(p.registry.List())
}

// Ready reports whether a first snapshot has been published.
func (p *Poller) Ready() bool {
	return !p.agg.Current().AsOf.IsZero()
}

// ActiveAlerts returns the alerts currently held active.
func (p *Poller) ActiveAlerts() []models.Alert {
	p.alertMu.RLock()
	defer p.alertMu.RUnlock()

	return p.alertState.Active()
}

// History returns the last built history of a source. The bool is false
// until the first detail fetch of the source has succeeded.
func (p *Poller) History(sourceID string) (models.History, bool, error) {
	if _, err := p.registry.Resolve(sourceID); err != nil {
		return models.History{}, false, err
	}

	p.histMu.RLock()
	defer p.histMu.RUnlock()

	h, ok := p.histories[sourceID]

	return h, ok, nil
}

// RefreshDashboard triggers a dashboard refresh. It returns false when the
// trigger was dropped because a refresh is already in flight.
func (p *Poller) RefreshDashboard() bool {
	return p.dashboard.Trigger()
}

// RefreshSource triggers a detail refresh of one source. Unknown sources are
// a *models.ConfigError.
func (p *Poller) RefreshSource(sourceID string) (bool, error) {
	if _, err := p.registry.Resolve(sourceID); err != nil {
		return false, err
	}

	return p.details[sourceID].Trigger(), nil
}

func (p *Poller) fetchDashboard(ctx context.Context) (*models.Snapshot, error) {
	return p.agg.Refresh(ctx, p.registry.List()), nil
}

func (p *Poller) publishDashboard(snap *models.Snapshot, _ error) {
	p.alertMu.Lock()
	transitions, next := p.evaluator.Evaluate(snap, p.alertState)
	p.alertState = next
	p.alertMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	alerts.RecordTransitions(ctx, transitions)

	if len(transitions) > 0 {
		if err := p.notifier.Notify(ctx, transitions); err != nil {
			p.logger.Warn().Err(err).Int("transitions", len(transitions)).Msg("Failed to deliver alert transitions")
		}
	}

	view := snap.View(p.registry.List())
	now := p.clock.Now()

	p.broadcast(models.StreamEvent{Type: models.StreamSnapshot, Snapshot: &view, Timestamp: now})

	if len(transitions) > 0 {
		p.broadcast(models.StreamEvent{Type: models.StreamAlerts, Alerts: transitions, Timestamp: now})
	}
}

func (p *Poller) fetchDetail(src models.SourceDescriptor) scheduler.FetchFunc[models.History] {
	return func(ctx context.Context) (models.History, error) {
		readings, err := p.fetcher.Fetch(ctx, src)
		if err != nil {
			return models.History{}, err
		}

		return p.builder.Build(src, readings), nil
	}
}

func (p *Poller) publishDetail(sourceID string) scheduler.PublishFunc[models.History] {
	return func(h models.History, err error) {
		if err != nil {
			// the last good history stays published
			p.logger.Warn().Err(err).Str("source", sourceID).Msg("Detail refresh failed")
			return
		}

		p.histMu.Lock()
		p.histories[sourceID] = h
		p.histMu.Unlock()

		p.broadcast(models.StreamEvent{Type: models.StreamHistory, History: &h, Timestamp: p.clock.Now()})
	}
}
