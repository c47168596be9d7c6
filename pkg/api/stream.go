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

package api

import (
	"context"
	"net/http"
	"time"

	srHttp "github.com/carverauto/rigwatch/pkg/http"
	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	streamBuffer        = 32
)

// handleStream pushes the current snapshot and then every engine event over
// a WebSocket until the client goes away or the engine stops.
func (s *APIServer) handleStream(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkWebSocketOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Failed to upgrade to WebSocket")

		return
	}

	defer func() {
		s.logger.Debug().Str("remote_addr", r.RemoteAddr).Msg("Closing WebSocket connection")
		_ = conn.Close()
	}()

	events, unsubscribe := s.engine.Subscribe(streamBuffer)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.readUntilClosed(conn, cancel)

	view := s.engine.SnapshotView()
	if err := writeEvent(conn, models.StreamEvent{Type: models.StreamSnapshot, Snapshot: &view, Timestamp: time.Now()}); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write initial snapshot")
		return
	}

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("WebSocket stream established")

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine stopped"),
					time.Now().Add(writeWait))

				return
			}

			if err := writeEvent(conn, ev); err != nil {
				s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("WebSocket write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev models.StreamEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return conn.WriteJSON(ev)
}

// readUntilClosed drains client frames so control messages are processed,
// and cancels the stream when the connection drops.
func (*APIServer) readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *APIServer) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if srHttp.OriginAllowed(s.corsConfig, origin) {
		return true
	}

	s.logger.Warn().
		Str("origin", origin).
		Strs("allowed_origins", s.corsConfig.AllowedOrigins).
		Msg("WebSocket CORS: Origin not allowed")

	return false
}
