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

// Package fetcher retrieves and parses the reading arrays published by the
// rig's sensor endpoints.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 4 << 20
)

// HTTPFetcher performs one GET per Fetch call against baseURL joined with the
// source's endpoint path. It keeps no state between calls.
type HTTPFetcher struct {
	baseURL *url.URL
	client  *http.Client
	timeout time.Duration
	maxBody int64
	logger  logger.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds each request. Zero or negative disables the per-request
// deadline; the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithMaxBodyBytes caps the accepted response size.
func WithMaxBodyBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// New creates a fetcher rooted at baseURL.
func New(baseURL string, log logger.Logger, opts ...Option) (*HTTPFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	f := &HTTPFetcher{
		baseURL: u,
		client:  &http.Client{},
		timeout: defaultTimeout,
		maxBody: defaultMaxBodyBytes,
		logger:  logger.Component(log, "fetcher"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Endpoint returns the absolute URL for a source.
func (f *HTTPFetcher) Endpoint(src models.SourceDescriptor) string {
	return f.baseURL.JoinPath(src.EndpointPath).String()
}

// Fetch retrieves every reading the source currently publishes. Failures are
// a *models.TransportError or *models.SchemaError.
func (f *HTTPFetcher) Fetch(ctx context.Context, src models.SourceDescriptor) ([]models.Reading, error) {
	start := time.Now()

	body, err := f.get(ctx, src)
	if err != nil {
		f.logger.Warn().Err(err).Str("source", src.ID).Msg("Source request failed")
		recordFetch(ctx, src.ID, outcomeTransport, time.Since(start), 0)

		return nil, err
	}

	readings, err := f.decode(src, body)
	if err != nil {
		f.logger.Error().Err(err).Str("source", src.ID).Msg("Source returned malformed data")
		recordFetch(ctx, src.ID, outcomeSchema, time.Since(start), 0)

		return nil, err
	}

	f.logger.Debug().
		Str("source", src.ID).
		Int("readings", len(readings)).
		Dur("elapsed", time.Since(start)).
		Msg("Fetched source")

	recordFetch(ctx, src.ID, outcomeOK, time.Since(start), len(readings))

	return readings, nil
}

func (f *HTTPFetcher) decode(src models.SourceDescriptor, body []byte) ([]models.Reading, error) {
	if int64(len(body)) > f.maxBody {
		return nil, &models.SchemaError{SourceID: src.ID, Index: -1, Err: ErrResponseTooLarge}
	}

	return Parse(src, body)
}

// get returns at most maxBody+1 bytes so decode can detect oversize bodies.
func (f *HTTPFetcher) get(ctx context.Context, src models.SourceDescriptor) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint(src), http.NoBody)
	if err != nil {
		return nil, &models.TransportError{SourceID: src.ID, Err: err}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.TransportError{SourceID: src.ID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBody))

		return nil, &models.TransportError{
			SourceID:   src.ID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &models.TransportError{SourceID: src.ID, Err: err}
	}

	return body, nil
}
