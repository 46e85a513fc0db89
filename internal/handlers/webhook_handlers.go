// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/service"
)

// FirefliesWebhookHandler receives Fireflies webhook deliveries.
type FirefliesWebhookHandler struct {
	webhookService *service.FirefliesWebhookService
}

// NewFirefliesWebhookHandler creates a new FirefliesWebhookHandler.
func NewFirefliesWebhookHandler(webhookService *service.FirefliesWebhookService) *FirefliesWebhookHandler {
	return &FirefliesWebhookHandler{webhookService: webhookService}
}

// HandlerReady reports whether the webhook service is ready.
func (h *FirefliesWebhookHandler) HandlerReady() bool {
	return h.webhookService.ServiceReady()
}

// WebhookResponse is the body returned to the webhook sender.
type WebhookResponse struct {
	Status string `json:"status"`
	models.WebhookResult
}

// HandleWebhook handles POST /webhooks/fireflies. Every outcome other than a
// rejected signature is acknowledged with 200 so the sender does not retry
// events this service has chosen to ignore or defer.
func (h *FirefliesWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	delivery, ok := middleware.WebhookDeliveryFromContext(r.Context())
	if !ok {
		var err error
		delivery, err = middleware.ReadWebhookDelivery(w, r)
		if err != nil {
			slog.WarnContext(r.Context(), "failed to read webhook body", logging.ErrKey, err)
			writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Code: "400", Message: "failed to read request body"})
			return
		}
	}

	slog.DebugContext(r.Context(), "fireflies webhook received",
		"bytes", len(delivery.Body),
		"signed", delivery.Signature != "",
		"received_at", delivery.ReceivedAt,
	)

	result := h.webhookService.HandleWebhook(r.Context(), delivery.Body, delivery.Signature)
	if result.State == models.WebhookStateRejected {
		writeJSON(w, r, http.StatusUnauthorized, WebhookResponse{Status: "error", WebhookResult: result})
		return
	}
	writeJSON(w, r, http.StatusOK, WebhookResponse{Status: "success", WebhookResult: result})
}

// Health handles GET /webhooks/fireflies/health, used by the provider to
// verify the endpoint.
func (h *FirefliesWebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":              "healthy",
		"signature_verifying": h.webhookService.SignatureConfigured(),
	})
}
