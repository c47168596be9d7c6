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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/rigwatch/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Service is a long-running component with an explicit start and stop.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServerOptions configures RunServer.
type ServerOptions struct {
	ServiceName     string
	Service         Service
	ListenAddr      string
	Handler         http.Handler
	ShutdownTimeout time.Duration
	Logger          logger.Logger
}

// RunServer starts the service and, when a handler is given, an HTTP server.
// It blocks until SIGINT/SIGTERM, the parent context ends, or either
// component fails, then stops both.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	go func() {
		if err := opts.Service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("%s service: %w", opts.ServiceName, err)
		}
	}()

	var srv *http.Server

	if opts.Handler != nil && opts.ListenAddr != "" {
		srv = &http.Server{
			Addr:              opts.ListenAddr,
			Handler:           opts.Handler,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Info().Str("addr", opts.ListenAddr).Msg("Starting HTTP server")

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	var runErr error

	select {
	case <-ctx.Done():
		log.Info().Str("service", opts.ServiceName).Msg("Shutdown signal received")
	case runErr = <-errCh:
		log.Error().Err(runErr).Str("service", opts.ServiceName).Msg("Component failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down HTTP server")
		}
	}

	if err := opts.Service.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Str("service", opts.ServiceName).Msg("Error stopping service")
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service stopped")

	return runErr
}
