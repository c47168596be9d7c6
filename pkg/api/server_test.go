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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/carverauto/rigwatch/pkg/sources"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Sources() []models.SourceDescriptor {
	args := m.Called()
	return args.Get(0).([]models.SourceDescriptor)
}

func (m *mockEngine) SnapshotView() models.SnapshotView {
	args := m.Called()
	return args.Get(0).(models.SnapshotView)
}

func (m *mockEngine) Ready() bool {
	return m.Called().Bool(0)
}

func (m *mockEngine) ActiveAlerts() []models.Alert {
	args := m.Called()

	alerts, _ := args.Get(0).([]models.Alert)

	return alerts
}

func (m *mockEngine) History(sourceID string) (models.History, bool, error) {
	args := m.Called(sourceID)
	return args.Get(0).(models.History), args.Bool(1), args.Error(2)
}

func (m *mockEngine) RefreshDashboard() bool {
	return m.Called().Bool(0)
}

func (m *mockEngine) RefreshSource(sourceID string) (bool, error) {
	args := m.Called(sourceID)
	return args.Bool(0), args.Error(1)
}

func (m *mockEngine) SetRefreshInterval(d time.Duration) error {
	return m.Called(d).Error(0)
}

func (m *mockEngine) Subscribe(buffer int) (<-chan models.StreamEvent, func()) {
	args := m.Called(buffer)
	return args.Get(0).(<-chan models.StreamEvent), args.Get(1).(func())
}

func unknownSource(id string) error {
	return &models.ConfigError{Subject: "source " + id, Err: models.ErrUnknownSource}
}

func serve(t *testing.T, s *APIServer, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(method, target, http.NoBody))

	return rr
}

var asOf = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestGetSnapshot(t *testing.T) {
	engine := &mockEngine{}
	engine.On("SnapshotView").Return(models.SnapshotView{
		AsOf: asOf,
		Sources: []models.SourceStatus{
			{ID: sources.PH, Present: true, Reading: &models.Reading{
				SourceID: sources.PH, Timestamp: asOf, Values: map[string]models.Value{"ph": models.NumberValue(7.1)},
			}},
			{ID: sources.RFID, Error: "transport error", ErrorKind: models.ErrorKindTransport},
		},
	})

	rr := serve(t, NewAPIServer(engine, logger.NewTestLogger()), http.MethodGet, "/api/v1/snapshot")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		AsOf    time.Time `json:"as_of"`
		Sources []struct {
			ID        string `json:"id"`
			Present   bool   `json:"present"`
			ErrorKind string `json:"error_kind"`
			Reading   *struct {
				Values map[string]interface{} `json:"values"`
			} `json:"reading"`
		} `json:"sources"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))

	assert.Equal(t, asOf, body.AsOf)
	require.Len(t, body.Sources, 2)
	assert.InDelta(t, 7.1, body.Sources[0].Reading.Values["ph"], 0.0001)
	assert.Nil(t, body.Sources[1].Reading)
	assert.Equal(t, "transport", body.Sources[1].ErrorKind)
	engine.AssertExpectations(t)
}

func TestGetAlertsEmptyIsArray(t *testing.T) {
	engine := &mockEngine{}
	engine.On("ActiveAlerts").Return(nil)

	rr := serve(t, NewAPIServer(engine, nil), http.MethodGet, "/api/v1/alerts")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestGetSources(t *testing.T) {
	engine := &mockEngine{}
	engine.On("Sources").Return(sources.Catalog())

	rr := serve(t, NewAPIServer(engine, nil), http.MethodGet, "/api/v1/sources")
	require.Equal(t, http.StatusOK, rr.Code)

	var got []models.SourceDescriptor
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, sources.Catalog(), got)
}

func TestGetHistory(t *testing.T) {
	built := models.History{
		SourceID: sources.FoodLevel,
		Columns:  []string{"Food", "Unit", "Time"},
		Rows:     []models.TableRow{{"18", "g", "5/1/2024, 12:00:00 PM"}},
		Series:   models.TimeSeries{Labels: []string{"5/1/2024, 12:00:00 PM"}, Points: []float64{18}},
	}

	engine := &mockEngine{}
	engine.On("History", sources.FoodLevel).Return(built, true, nil)
	engine.On("History", sources.PH).Return(models.History{}, false, nil)
	engine.On("RefreshSource", sources.PH).Return(true, nil)
	engine.On("History", "humidity").Return(models.History{}, false, unknownSource("humidity"))

	s := NewAPIServer(engine, nil)

	rr := serve(t, s, http.MethodGet, "/api/v1/sources/foodLevel/history")
	require.Equal(t, http.StatusOK, rr.Code)

	var got models.History
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, built.Rows, got.Rows)
	assert.Equal(t, built.Series, got.Series)

	rr = serve(t, s, http.MethodGet, "/api/v1/sources/pH/history")
	assert.Equal(t, http.StatusAccepted, rr.Code, "first request starts a detail refresh")
	assert.JSONEq(t, `{"target":"pH","accepted":true}`, rr.Body.String())

	rr = serve(t, s, http.MethodGet, "/api/v1/sources/humidity/history")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	engine.AssertExpectations(t)
}

func TestRefresh(t *testing.T) {
	engine := &mockEngine{}
	engine.On("RefreshDashboard").Return(true).Once()
	engine.On("RefreshDashboard").Return(false).Once()
	engine.On("RefreshSource", sources.RFID).Return(true, nil)
	engine.On("RefreshSource", "humidity").Return(false, unknownSource("humidity"))

	s := NewAPIServer(engine, nil)

	rr := serve(t, s, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"target":"dashboard","accepted":true}`, rr.Body.String())

	rr = serve(t, s, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(t, s, http.MethodPost, "/api/v1/sources/rfid/refresh")
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = serve(t, s, http.MethodPost, "/api/v1/sources/humidity/refresh")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(t, s, http.MethodGet, "/api/v1/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	engine.AssertExpectations(t)
}

func serveBody(t *testing.T, s *APIServer, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))

	return rr
}

func TestSetRefreshInterval(t *testing.T) {
	engine := &mockEngine{}
	engine.On("SetRefreshInterval", 5*time.Second).Return(nil).Once()

	s := NewAPIServer(engine, nil)

	rr := serveBody(t, s, http.MethodPut, "/api/v1/refresh-interval", `{"interval":"PT5S"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"interval":"5s"}`, rr.Body.String())

	rr = serveBody(t, s, http.MethodPut, "/api/v1/refresh-interval", `{"interval":"0s"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serveBody(t, s, http.MethodPut, "/api/v1/refresh-interval", `{"interval":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serveBody(t, s, http.MethodPost, "/api/v1/refresh-interval", `{"interval":"5s"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	engine.AssertExpectations(t)
}

func TestHealthAndReadiness(t *testing.T) {
	engine := &mockEngine{}
	engine.On("Ready").Return(false).Once()
	engine.On("Ready").Return(true).Once()

	s := NewAPIServer(engine, nil, WithAPIKey("secret"))

	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, s, http.MethodGet, "/readyz").Code)
	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/readyz").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, s, http.MethodGet, "/api/v1/snapshot").Code)
}

func TestStream(t *testing.T) {
	events := make(chan models.StreamEvent, 4)
	unsubscribed := make(chan struct{})

	engine := &mockEngine{}
	engine.On("SnapshotView").Return(models.SnapshotView{AsOf: asOf, Sources: []models.SourceStatus{}})
	engine.On("Subscribe", streamBuffer).Return((<-chan models.StreamEvent)(events), func() { close(unsubscribed) })

	srv := httptest.NewServer(NewAPIServer(engine, logger.NewTestLogger()).Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	var first models.StreamEvent
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, models.StreamSnapshot, first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, asOf, first.Snapshot.AsOf)

	events <- models.StreamEvent{
		Type:   models.StreamAlerts,
		Alerts: []models.Alert{{RuleID: "food-stock-low", SourceID: sources.FoodLevel, Active: true, Message: "Food stock is low!"}},
	}

	var next models.StreamEvent
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, models.StreamAlerts, next.Type)
	require.Len(t, next.Alerts, 1)
	assert.Equal(t, "Food stock is low!", next.Alerts[0].Message)

	close(events)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	select {
	case <-unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not unsubscribe")
	}
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	engine := &mockEngine{}

	srv := httptest.NewServer(NewAPIServer(engine, nil,
		WithCORS(models.CORSConfig{AllowedOrigins: []string{"http://dashboard.local"}})).Handler())
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.com"}}

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/stream", header)
	require.Error(t, err)
	require.NotNil(t, resp)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	engine.AssertNotCalled(t, "Subscribe", mock.Anything)
}
