// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"
	"strconv"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/service"
)

// TranscriptHandler serves stored and provider transcripts.
type TranscriptHandler struct {
	transcriptService *service.TranscriptService
}

// NewTranscriptHandler creates a new TranscriptHandler.
func NewTranscriptHandler(transcriptService *service.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{transcriptService: transcriptService}
}

// HandlerReady reports whether the backing service is ready.
func (h *TranscriptHandler) HandlerReady() bool {
	return h.transcriptService.ServiceReady()
}

// GetForMeeting handles GET /meetings/{meeting_uid}/transcript. A transcript
// the provider has not finished yet is answered with 202.
func (h *TranscriptHandler) GetForMeeting(w http.ResponseWriter, r *http.Request) {
	email, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	transcript, err := h.transcriptService.GetForMeeting(r.Context(), email, r.PathValue("meeting_uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, transcript)
}

// ListProvider handles GET /transcripts?limit=&skip=.
func (h *TranscriptHandler) ListProvider(w http.ResponseWriter, r *http.Request) {
	email, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	skip, err := queryInt(r, "skip")
	if err != nil {
		writeError(w, r, err)
		return
	}

	transcripts, err := h.transcriptService.ListProvider(r.Context(), email, limit, skip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, transcripts)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name+" must be an integer", err)
	}
	return v, nil
}
