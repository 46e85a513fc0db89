// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

// MaxWebhookBodyBytes bounds the webhook bodies read into memory.
const MaxWebhookBodyBytes = 1 << 20

// signatureHeaders are consulted in order; the first non-blank value wins.
var signatureHeaders = []string{constants.FirefliesSignatureHeader, constants.HubSignatureHeader}

// WebhookDelivery is a webhook request as received, before any parsing.
type WebhookDelivery struct {
	Body       []byte
	Signature  string
	ReceivedAt time.Time
}

type webhookDeliveryKey struct{}

// WebhookSignature returns the first non-blank signature header.
func WebhookSignature(h http.Header) string {
	for _, name := range signatureHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// ReadWebhookDelivery reads the bounded body of r and pairs it with the
// delivery signature.
func ReadWebhookDelivery(w http.ResponseWriter, r *http.Request) (*WebhookDelivery, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()

	return &WebhookDelivery{
		Body:       body,
		Signature:  WebhookSignature(r.Header),
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// WebhookBodyCaptureMiddleware reads Fireflies webhook deliveries up front so
// the signature is checked against the exact bytes sent. The body is replayed
// for the next handler.
func WebhookBodyCaptureMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != constants.FirefliesWebhookPath {
				next.ServeHTTP(w, r)
				return
			}

			delivery, err := ReadWebhookDelivery(w, r)
			if err != nil {
				slog.WarnContext(r.Context(), "rejecting unreadable webhook body", logging.ErrKey, err)
				http.Error(w, "Failed to read request body", http.StatusBadRequest)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(delivery.Body))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), webhookDeliveryKey{}, delivery)))
		})
	}
}

// WebhookDeliveryFromContext returns the delivery captured for this request.
func WebhookDeliveryFromContext(ctx context.Context) (*WebhookDelivery, bool) {
	delivery, ok := ctx.Value(webhookDeliveryKey{}).(*WebhookDelivery)
	return delivery, ok && delivery != nil
}
