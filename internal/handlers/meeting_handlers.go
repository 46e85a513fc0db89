// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/service"
)

// MeetingHandler serves the meeting lifecycle endpoints.
type MeetingHandler struct {
	meetingService *service.MeetingService
}

// NewMeetingHandler creates a new MeetingHandler.
func NewMeetingHandler(meetingService *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService}
}

// HandlerReady reports whether the backing service is ready.
func (h *MeetingHandler) HandlerReady() bool {
	return h.meetingService.ServiceReady()
}

// Schedule handles POST /meetings/schedule.
func (h *MeetingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	email, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req service.ScheduleMeetingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	meeting, err := h.meetingService.Schedule(r.Context(), email, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, meeting)
}

// Launch handles POST /meetings/launch.
func (h *MeetingHandler) Launch(w http.ResponseWriter, r *http.Request) {
	email, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req service.LaunchMeetingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	meeting, err := h.meetingService.Launch(r.Context(), email, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, meeting)
}

// List handles GET /meetings.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	email, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	meetings, err := h.meetingService.List(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, meetings)
}

// Get handles GET /meetings/{meeting_uid}.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	email, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	meeting, err := h.meetingService.Get(r.Context(), email, r.PathValue("meeting_uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, meeting)
}
