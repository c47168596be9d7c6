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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/carverauto/rigwatch/pkg/api"
	"github.com/carverauto/rigwatch/pkg/config"
	"github.com/carverauto/rigwatch/pkg/lifecycle"
	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/poller"
	"github.com/carverauto/rigwatch/pkg/version"
)

var (
	errFailedToLoadConfig = fmt.Errorf("failed to load config")
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/rigwatch/rigwatch.json", "Path to rigwatch config file")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	ctx := context.Background()

	// Step 1: Load configuration
	cfgLoader := config.NewConfig(nil)

	var cfg poller.Config

	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	// Step 2: Create logger from loaded config
	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	rigLogger, err := lifecycle.CreateComponentLogger("rigwatch", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if _, err := logger.InitializeMetrics(ctx, logConfig.OTel, version.GetVersion()); err != nil {
		if !errors.Is(err, logger.ErrOTelMetricsDisabled) {
			rigLogger.Warn().Err(err).Msg("Failed to initialize OTel metrics, continuing without export")
		}
	} else {
		defer func() {
			if err := logger.ShutdownMetrics(context.Background()); err != nil {
				rigLogger.Warn().Err(err).Msg("Failed to flush OTel metrics")
			}
		}()
	}

	// nil clock defaults to the real clock
	engine, err := poller.New(ctx, &cfg, nil, rigLogger)
	if err != nil {
		return err
	}

	server := api.NewAPIServer(engine, rigLogger,
		api.WithCORS(cfg.CORS),
		api.WithAPIKey(cfg.APIKey),
	)

	rigLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting rigwatch")

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName: cfg.ServiceName,
		Service:     engine,
		ListenAddr:  cfg.ListenAddr,
		Handler:     server.Handler(),
		Logger:      rigLogger,
	})
}
