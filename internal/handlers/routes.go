// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

// API groups the HTTP handlers of the proxy.
type API struct {
	Auth        *AuthHandler
	Meetings    *MeetingHandler
	Transcripts *TranscriptHandler
	Webhooks    *FirefliesWebhookHandler
}

// Ready reports whether every handler can take requests.
func (a *API) Ready() bool {
	return a.Auth.HandlerReady() &&
		a.Meetings.HandlerReady() &&
		a.Transcripts.HandlerReady() &&
		a.Webhooks.HandlerReady()
}

// Routes registers every endpoint on a new ServeMux.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /livez", a.Livez)
	mux.HandleFunc("GET /readyz", a.Readyz)

	mux.HandleFunc("POST /auth/register", a.Auth.Register)
	mux.HandleFunc("GET /auth/me", a.Auth.Me)
	mux.HandleFunc("GET /auth/fireflies", a.Auth.VerifyProvider)

	mux.HandleFunc("POST /meetings/schedule", a.Meetings.Schedule)
	mux.HandleFunc("POST /meetings/launch", a.Meetings.Launch)
	mux.HandleFunc("GET /meetings", a.Meetings.List)
	mux.HandleFunc("GET /meetings/{meeting_uid}", a.Meetings.Get)
	mux.HandleFunc("GET /meetings/{meeting_uid}/transcript", a.Transcripts.GetForMeeting)

	mux.HandleFunc("GET /transcripts", a.Transcripts.ListProvider)

	mux.HandleFunc("POST "+constants.FirefliesWebhookPath, a.Webhooks.HandleWebhook)
	mux.HandleFunc("GET "+constants.FirefliesWebhookHealthPath, a.Webhooks.Health)

	return mux
}

// Readyz checks if the service is able to take inbound requests.
func (a *API) Readyz(w http.ResponseWriter, _ *http.Request) {
	if !a.Ready() {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("OK\n"))
}

// Livez checks if the service is alive. It always succeeds while the process
// is running.
func (a *API) Livez(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK\n"))
}
