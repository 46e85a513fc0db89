// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package handlers exposes the proxy services over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

// maxRequestBodyBytes bounds JSON request bodies.
const maxRequestBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusForError maps a domain error to its HTTP status code.
func statusForError(err error) int {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeForbidden:
		return http.StatusForbidden
	case domain.ErrorTypeNotFound:
		return http.StatusNotFound
	case domain.ErrorTypeConflict:
		return http.StatusConflict
	case domain.ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrorTypeNotReady:
		return http.StatusAccepted
	case domain.ErrorTypeUpstream:
		return http.StatusBadGateway
	case domain.ErrorTypeUnavailable, domain.ErrorTypeConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// retryAfterSeconds rounds the remaining backoff up to whole seconds.
func retryAfterSeconds(retryAfter, now time.Time) int {
	remaining := retryAfter.Sub(now).Seconds()
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.WarnContext(r.Context(), "failed to write response body", logging.ErrKey, err)
	}
}

// writeError writes err as an ErrorResponse with the mapped status. Internal
// failures are logged and their detail withheld from the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)

	var rateLimited *domain.RateLimitedError
	if errors.As(err, &rateLimited) {
		w.Header().Set(constants.RetryAfterHeader, strconv.Itoa(retryAfterSeconds(rateLimited.RetryAfter, time.Now())))
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", logging.ErrKey, err)
		message = "an unexpected error occurred"
	}

	writeJSON(w, r, status, ErrorResponse{Code: strconv.Itoa(status), Message: message})
}

// requirePrincipal returns the caller email or writes a 400.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := middleware.UserEmailFromContext(r.Context())
	if !ok {
		writeError(w, r, domain.NewValidationError("required header missing: "+constants.UserEmailHeader))
		return "", false
	}
	return email, true
}

// decodeBody decodes a JSON request body into dst or writes a 400.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, r, domain.NewValidationError("failed to read request body", err))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, r, domain.NewValidationError("request body is not valid JSON", err))
		return false
	}
	return true
}
