// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/webhook"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/service"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

const (
	ownerEmail    = "owner@example.com"
	webhookSecret = "shared-secret"
)

type apiFixture struct {
	api       *API
	handler   http.Handler
	provider  *mocks.MockTranscriptProvider
	meetings  *store.NatsMeetingRepository
	validator *webhook.FirefliesWebhookValidator
}

func newAPIFixture() *apiFixture {
	meetings := store.NewNatsMeetingRepository(store.NewInMemoryKeyValue())
	transcripts := store.NewNatsTranscriptRepository(store.NewInMemoryKeyValue())
	users := store.NewNatsUserRepository(store.NewInMemoryKeyValue())
	messages := mocks.NewPermissiveMessageBuilder()
	provider := &mocks.MockTranscriptProvider{}
	validator := webhook.NewFirefliesWebhookValidator(webhookSecret)
	config := service.ServiceConfig{}

	builder := service.NewTranscriptBuilder(transcripts, meetings, messages, config)
	api := &API{
		Auth:        NewAuthHandler(service.NewAuthService(users, provider, config)),
		Meetings:    NewMeetingHandler(service.NewMeetingService(meetings, users, provider, messages, config)),
		Transcripts: NewTranscriptHandler(service.NewTranscriptService(meetings, users, provider, builder)),
		Webhooks: NewFirefliesWebhookHandler(service.NewFirefliesWebhookService(
			validator,
			service.NewCorrelationResolver(meetings),
			provider,
			builder,
			meetings,
			messages,
			config,
		)),
	}

	var handler http.Handler = api.Routes()
	handler = middleware.WebhookBodyCaptureMiddleware()(handler)
	handler = middleware.UserEmailMiddleware()(handler)

	return &apiFixture{api: api, handler: handler, provider: provider, meetings: meetings, validator: validator}
}

func (f *apiFixture) do(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if email != "" {
		req.Header.Set(constants.UserEmailHeader, email)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) register(t *testing.T, email string) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Email: email})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{domain.NewValidationError("bad"), http.StatusBadRequest},
		{domain.NewForbiddenError("mine"), http.StatusForbidden},
		{domain.NewNotFoundError("gone"), http.StatusNotFound},
		{domain.NewConflictError("again"), http.StatusConflict},
		{&domain.RateLimitedError{RetryAfter: time.Now()}, http.StatusTooManyRequests},
		{domain.ErrTranscriptNotReady, http.StatusAccepted},
		{&domain.UpstreamError{Status: 500, Message: "boom"}, http.StatusBadGateway},
		{domain.NewUnavailableError("down"), http.StatusServiceUnavailable},
		{domain.ErrMissingCredential, http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusForError(tt.err))
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 90, retryAfterSeconds(now.Add(90*time.Second), now))
	assert.Equal(t, 2, retryAfterSeconds(now.Add(1500*time.Millisecond), now))
	assert.Equal(t, 0, retryAfterSeconds(now.Add(-time.Second), now))
}

func TestAuthHandler(t *testing.T) {
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Email: " Owner@Example.com "})
	require.Equal(t, http.StatusOK, w.Code)
	registered := decode[map[string]any](t, w)
	assert.Equal(t, ownerEmail, registered["email"])
	assert.Equal(t, "ApiKey", registered["token_type"])

	w = f.do(t, http.MethodGet, "/auth/me", ownerEmail, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/auth/me", "stranger@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/auth/register", "", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Email: "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "400", decode[ErrorResponse](t, w).Code)
}

func TestAuthHandler_VerifyProvider(t *testing.T) {
	t.Run("invalid key", func(t *testing.T) {
		f := newAPIFixture()
		f.register(t, ownerEmail)
		f.provider.On("ProbeIdentity", mock.Anything).Return(nil, domain.ErrMissingCredential)

		w := f.do(t, http.MethodGet, "/auth/fireflies", ownerEmail, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, decode[ErrorResponse](t, w).Message, "invalid or not configured")
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newAPIFixture()
		f.register(t, ownerEmail)
		f.provider.On("ProbeIdentity", mock.Anything).
			Return(nil, &domain.RateLimitedError{RetryAfter: time.Now().Add(2 * time.Minute)})

		w := f.do(t, http.MethodGet, "/auth/fireflies", ownerEmail, nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		seconds, err := strconv.Atoi(w.Header().Get(constants.RetryAfterHeader))
		require.NoError(t, err)
		assert.InDelta(t, 120, seconds, 5)
	})

	t.Run("valid key", func(t *testing.T) {
		f := newAPIFixture()
		f.register(t, ownerEmail)
		f.provider.On("ProbeIdentity", mock.Anything).
			Return(&models.ProviderUser{UserID: "ff-1", Email: "ops@example.com"}, nil)

		w := f.do(t, http.MethodGet, "/auth/fireflies", ownerEmail, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ff-1", decode[models.ProviderUser](t, w).UserID)
	})
}

func TestMeetingHandler(t *testing.T) {
	f := newAPIFixture()
	f.register(t, ownerEmail)
	scheduledAt := time.Date(2026, 5, 6, 15, 0, 0, 0, time.UTC)

	w := f.do(t, http.MethodPost, "/meetings/schedule", ownerEmail, service.ScheduleMeetingRequest{
		Title:       "Weekly sync",
		ScheduledAt: &scheduledAt,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Meeting](t, w)
	assert.Equal(t, models.MeetingStatusScheduled, created.Status)

	w = f.do(t, http.MethodGet, "/meetings/"+created.UID, ownerEmail, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/meetings/"+created.UID, "intruder@example.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/meetings/missing", ownerEmail, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/meetings", ownerEmail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Meeting](t, w), 1)

	url := "https://zoom.example/1"
	f.provider.On("InviteBot", mock.Anything, url, "Weekly sync").Return(&models.BotInviteResult{Success: true}, nil)
	w = f.do(t, http.MethodPost, "/meetings/launch", ownerEmail, service.LaunchMeetingRequest{MeetingUID: created.UID, MeetingURL: url})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	launched := decode[models.Meeting](t, w)
	assert.Equal(t, models.MeetingStatusInProgress, launched.Status)
	assert.Equal(t, url, launched.PendingURL)

	w = f.do(t, http.MethodPost, "/meetings/schedule", "", service.ScheduleMeetingRequest{Title: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscriptHandler_ListProvider(t *testing.T) {
	f := newAPIFixture()
	f.register(t, ownerEmail)
	listing := []models.ProviderTranscriptSummary{{ID: "t-1", Title: "Weekly sync"}}
	f.provider.On("ListTranscripts", mock.Anything, 5, 10).Return(listing, nil)

	w := f.do(t, http.MethodGet, "/transcripts?limit=5&skip=10", ownerEmail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, listing, decode[[]models.ProviderTranscriptSummary](t, w))

	w = f.do(t, http.MethodGet, "/transcripts?limit=many", ownerEmail, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/transcripts?limit=500", ownerEmail, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookFlow_EndToEnd(t *testing.T) {
	f := newAPIFixture()
	f.register(t, ownerEmail)
	url := "https://zoom.example/1"

	f.provider.On("InviteBot", mock.Anything, url, "Weekly sync").Return(&models.BotInviteResult{Success: true}, nil)
	w := f.do(t, http.MethodPost, "/meetings/schedule", ownerEmail, map[string]any{
		"title":        "Weekly sync",
		"scheduled_at": "2026-05-06T15:00:00Z",
		"meeting_url":  url,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	meeting := decode[models.Meeting](t, w)

	w = f.do(t, http.MethodGet, "/meetings/"+meeting.UID+"/transcript", ownerEmail, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	start := 0.0
	f.provider.On("FetchTranscript", mock.Anything, "ext-42").Return(&models.ProviderTranscript{
		ID:         "ext-42",
		Title:      "Weekly sync",
		MeetingURL: url,
		Sentences:  []models.Sentence{{SpeakerName: "Ada", Text: "Hello", StartTime: &start}},
	}, nil)

	payload := []byte(`{"event_type":"Transcription completed","meetingId":"ext-42"}`)
	req := httptest.NewRequest(http.MethodPost, constants.FirefliesWebhookPath, bytes.NewReader(payload))
	req.Header.Set(constants.FirefliesSignatureHeader, f.validator.Sign(payload))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[WebhookResponse](t, rec)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, models.WebhookStatePersisted, result.State)
	assert.Equal(t, meeting.UID, result.MeetingUID)

	w = f.do(t, http.MethodGet, "/meetings/"+meeting.UID+"/transcript", ownerEmail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	transcript := decode[models.Transcript](t, w)
	assert.Equal(t, "[00:00] Ada: Hello\n", transcript.Content)
}

func TestWebhookHandler_Signatures(t *testing.T) {
	payload := []byte(`{"event_type":"meeting.started","meetingId":"ext-42"}`)

	tests := []struct {
		name          string
		header        string
		sign          bool
		signature     string
		expectedCode  int
		expectedState models.WebhookState
	}{
		{name: "fireflies header", header: constants.FirefliesSignatureHeader, sign: true, expectedCode: http.StatusOK, expectedState: models.WebhookStateIgnored},
		{name: "hub header", header: constants.HubSignatureHeader, sign: true, expectedCode: http.StatusOK, expectedState: models.WebhookStateIgnored},
		{name: "bad signature", header: constants.FirefliesSignatureHeader, signature: "bm9wZQ==", expectedCode: http.StatusUnauthorized, expectedState: models.WebhookStateRejected},
		{name: "unsigned accepted", expectedCode: http.StatusOK, expectedState: models.WebhookStateIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture()
			req := httptest.NewRequest(http.MethodPost, constants.FirefliesWebhookPath, bytes.NewReader(payload))
			if tt.header != "" {
				sig := tt.signature
				if tt.sign {
					sig = f.validator.Sign(payload)
				}
				req.Header.Set(tt.header, sig)
			}
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.expectedState, decode[WebhookResponse](t, w).State)
		})
	}
}

func TestWebhookHandler_MalformedBodyAcknowledged(t *testing.T) {
	f := newAPIFixture()
	body := []byte("not json")
	req := httptest.NewRequest(http.MethodPost, constants.FirefliesWebhookPath, bytes.NewReader(body))
	req.Header.Set(constants.FirefliesSignatureHeader, f.validator.Sign(body))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.WebhookStateIgnored, decode[WebhookResponse](t, w).State)
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture()

	for _, path := range []string{"/livez", "/readyz"} {
		w := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "OK\n", w.Body.String())
	}

	w := f.do(t, http.MethodGet, constants.FirefliesWebhookHealthPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, true, health["signature_verifying"])
}

func TestReadyz_NotReady(t *testing.T) {
	f := newAPIFixture()
	f.api.Auth = NewAuthHandler(&service.AuthService{})

	w := f.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
