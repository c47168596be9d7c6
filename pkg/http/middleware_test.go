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

package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carverauto/rigwatch/pkg/logger"
	"github.com/carverauto/rigwatch/pkg/models"
	"github.com/stretchr/testify/assert"
)

func okHandler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte("OK"))
		assert.NoError(t, err)
	})
}

func TestCommonMiddleware_CORS(t *testing.T) {
	corsConfig := models.CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
	}

	handler := CommonMiddleware(okHandler(t), corsConfig, logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "http://evil.com")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"), "unlisted origin")
}

func TestCommonMiddleware_Preflight(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	handler := CommonMiddleware(next, models.CORSConfig{AllowedOrigins: []string{"*"}}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/refresh", http.NoBody)
	req.Header.Set("Origin", "http://dashboard.local")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, called)
	assert.Equal(t, "http://dashboard.local", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAPIKeyMiddleware(t *testing.T) {
	opts := APIKeyOptions{
		APIKey:          "test-key",
		ExcludePaths:    []string{"/healthz"},
		LogUnauthorized: true,
		Logger:          logger.NewTestLogger(),
	}

	handler := APIKeyMiddlewareWithOptions(opts)(okHandler(t))

	tests := []struct {
		name   string
		target string
		key    string
		want   int
	}{
		{name: "missing key", target: "/api/v1/snapshot", want: http.StatusUnauthorized},
		{name: "wrong key", target: "/api/v1/snapshot", key: "nope", want: http.StatusUnauthorized},
		{name: "header key", target: "/api/v1/snapshot", key: "test-key", want: http.StatusOK},
		{name: "query key", target: "/api/v1/snapshot?api_key=test-key", want: http.StatusOK},
		{name: "excluded path", target: "/healthz", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestAPIKeyMiddleware_Disabled(t *testing.T) {
	handler := APIKeyMiddlewareWithOptions(APIKeyOptions{})(okHandler(t))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", http.NoBody))

	assert.Equal(t, http.StatusOK, rr.Code)
}
