// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestLoggerMiddleware_PassesThrough(t *testing.T) {
	paths := []string{"/livez", "/readyz", "/webhooks/fireflies/health", "/meetings"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			handler := RequestLoggerMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
				_, _ = w.Write([]byte("ok"))
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusTeapot, w.Code)
			assert.Equal(t, "ok", w.Body.String())
		})
	}
}

func TestResponseRecorder_CapturesFirstStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseRecorder{ResponseWriter: rec, status: http.StatusOK}

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError)
	_, _ = rw.Write([]byte("hello"))
	_, _ = rw.Write([]byte("!"))

	assert.Equal(t, http.StatusAccepted, rw.status)
	assert.Equal(t, 6, rw.bytes)
	assert.Equal(t, rec, rw.Unwrap())
}

func TestResponseLevel(t *testing.T) {
	tests := []struct {
		status   int
		expected slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusAccepted, slog.LevelInfo},
		{http.StatusBadRequest, slog.LevelWarn},
		{http.StatusTooManyRequests, slog.LevelWarn},
		{http.StatusInternalServerError, slog.LevelError},
		{http.StatusBadGateway, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, responseLevel(tt.status))
		})
	}
}
