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

// Package api provides the HTTP API server for rigwatch
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	srHttp "github.com/carverauto/rigwatch/pkg/http"
	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/gorilla/mux"
)

// Engine is the part of the rigwatch engine the API exposes.
type Engine interface {
	Sources() []models.SourceDescriptor
	SnapshotView() models.SnapshotView
	Ready() bool
	ActiveAlerts() []models.Alert
	History(sourceID string) (models.History, bool, error)
	RefreshDashboard() bool
	RefreshSource(sourceID string) (bool, error)
	SetRefreshInterval(d time.Duration) error
	Subscribe(buffer int) (<-chan models.StreamEvent, func())
}

// APIServer serves the snapshot, alerts and history of the engine.
type APIServer struct {
	engine       Engine
	router       *mux.Router
	corsConfig   models.CORSConfig
	apiKey       string
	logger       logger.Logger
	pingInterval time.Duration
}

// RefreshResponse is the body of a manual refresh request.
type RefreshResponse struct {
	Target   string `json:"target"`
	Accepted bool   `json:"accepted"`
}

// IntervalRequest is the body of a refresh interval change.
type IntervalRequest struct {
	Interval models.Duration `json:"interval"`
}

// NewAPIServer creates a new API server instance for the engine.
func NewAPIServer(engine Engine, log logger.Logger, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		engine:       engine,
		router:       mux.NewRouter(),
		logger:       logger.Component(log, "api"),
		pingInterval: defaultPingInterval,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithCORS sets the origins allowed to call the API and open streams.
func WithCORS(config models.CORSConfig) func(server *APIServer) {
	return func(server *APIServer) {
		server.corsConfig = config
	}
}

// WithAPIKey requires the key on every route except the health probes.
func WithAPIKey(key string) func(server *APIServer) {
	return func(server *APIServer) {
		server.apiKey = key
	}
}

func (s *APIServer) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/snapshot", s.getSnapshot).Methods(http.MethodGet)
	v1.HandleFunc("/alerts", s.getAlerts).Methods(http.MethodGet)
	v1.HandleFunc("/sources", s.getSources).Methods(http.MethodGet)
	v1.HandleFunc("/sources/{id}/history", s.getHistory).Methods(http.MethodGet)
	v1.HandleFunc("/sources/{id}/refresh", s.refreshSource).Methods(http.MethodPost)
	v1.HandleFunc("/refresh", s.refreshDashboard).Methods(http.MethodPost)
	v1.HandleFunc("/refresh-interval", s.setRefreshInterval).Methods(http.MethodPut)
	v1.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
}

// Handler returns the router wrapped in the CORS and API key middleware.
func (s *APIServer) Handler() http.Handler {
	authed := srHttp.APIKeyMiddlewareWithOptions(srHttp.APIKeyOptions{
		APIKey:          s.apiKey,
		ExcludePaths:    []string{"/healthz", "/readyz"},
		LogUnauthorized: true,
		Logger:          s.logger,
	})(s.router)

	return srHttp.CommonMiddleware(authed, s.corsConfig, s.logger)
}

func (*APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.engine.Ready() {
		writeError(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *APIServer) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.SnapshotView())
}

func (s *APIServer) getAlerts(w http.ResponseWriter, _ *http.Request) {
	active := s.engine.ActiveAlerts()
	if active == nil {
		active = []models.Alert{}
	}

	writeJSON(w, http.StatusOK, active)
}

func (s *APIServer) getSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Sources())
}

func (s *APIServer) getHistory(w http.ResponseWriter, r *http.Request) {
	sourceID := mux.Vars(r)["id"]

	h, ok, err := s.engine.History(sourceID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if !ok {
		// nothing built yet; a detail fetch is started or already in flight
		if _, err := s.engine.RefreshSource(sourceID); err != nil {
			s.writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, RefreshResponse{Target: sourceID, Accepted: true})

		return
	}

	writeJSON(w, http.StatusOK, h)
}

func (s *APIServer) refreshDashboard(w http.ResponseWriter, _ *http.Request) {
	writeRefresh(w, "dashboard", s.engine.RefreshDashboard())
}

func (s *APIServer) refreshSource(w http.ResponseWriter, r *http.Request) {
	sourceID := mux.Vars(r)["id"]

	accepted, err := s.engine.RefreshSource(sourceID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeRefresh(w, sourceID, accepted)
}

func (s *APIServer) setRefreshInterval(w http.ResponseWriter, r *http.Request) {
	var req IntervalRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	d := time.Duration(req.Interval)
	if d <= 0 {
		writeError(w, "interval must be positive", http.StatusBadRequest)
		return
	}

	if err := s.engine.SetRefreshInterval(d); err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func writeRefresh(w http.ResponseWriter, target string, accepted bool) {
	status := http.StatusAccepted
	if !accepted {
		// a fetch for the target is already in flight
		status = http.StatusConflict
	}

	writeJSON(w, status, RefreshResponse{Target: target, Accepted: accepted})
}

func (s *APIServer) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrUnknownSource) {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	s.logger.Error().Err(err).Msg("Engine request failed")
	writeError(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, models.ErrorResponse{Message: message, Status: statusCode})
}
