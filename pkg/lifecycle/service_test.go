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

package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	started   chan struct{}
	done      chan struct{}
	startErr  error
	stopped   atomic.Bool
	closeOnce sync.Once
}

func newFakeService(startErr error) *fakeService {
	return &fakeService{started: make(chan struct{}), done: make(chan struct{}), startErr: startErr}
}

func (f *fakeService) Start(ctx context.Context) error {
	close(f.started)

	if f.startErr != nil {
		return f.startErr
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

func (f *fakeService) Stop(context.Context) error {
	f.stopped.Store(true)
	f.closeOnce.Do(func() { close(f.done) })

	return nil
}

func TestRunServerStopsServiceOnCancel(t *testing.T) {
	svc := newFakeService(nil)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-svc.started
		cancel()
	}()

	err := RunServer(ctx, &ServerOptions{ServiceName: "rigwatch", Service: svc, Logger: logger.NewTestLogger()})
	require.NoError(t, err)
	assert.True(t, svc.stopped.Load())
}

func TestRunServerReturnsServiceFailure(t *testing.T) {
	svc := newFakeService(assert.AnError)

	err := RunServer(context.Background(), &ServerOptions{ServiceName: "rigwatch", Service: svc})
	require.ErrorIs(t, err, assert.AnError)
	assert.True(t, svc.stopped.Load())
}
