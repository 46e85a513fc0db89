// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/infrastructure/store"
)

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func testConfig() ServiceConfig {
	return ServiceConfig{Now: func() time.Time { return testNow }}
}

func floatPtr(v float64) *float64 { return &v }

// storeFixture wires the real repositories over in-memory buckets.
type storeFixture struct {
	meetings    *store.NatsMeetingRepository
	transcripts *store.NatsTranscriptRepository
	users       *store.NatsUserRepository
	messages    *mocks.MockMessageBuilder
	provider    *mocks.MockTranscriptProvider
}

func newStoreFixture() *storeFixture {
	return &storeFixture{
		meetings:    store.NewNatsMeetingRepository(store.NewInMemoryKeyValue()),
		transcripts: store.NewNatsTranscriptRepository(store.NewInMemoryKeyValue()),
		users:       store.NewNatsUserRepository(store.NewInMemoryKeyValue()),
		messages:    mocks.NewPermissiveMessageBuilder(),
		provider:    &mocks.MockTranscriptProvider{},
	}
}

func (f *storeFixture) builder() *TranscriptBuilder {
	return NewTranscriptBuilder(f.transcripts, f.meetings, f.messages, testConfig())
}

func (f *storeFixture) webhookService(validator *mocks.MockWebhookValidator, config ServiceConfig) *FirefliesWebhookService {
	return NewFirefliesWebhookService(
		validator,
		NewCorrelationResolver(f.meetings),
		f.provider,
		NewTranscriptBuilder(f.transcripts, f.meetings, f.messages, config),
		f.meetings,
		f.messages,
		config,
	)
}

func (f *storeFixture) createMeeting(t *testing.T, meeting *models.Meeting) *models.Meeting {
	t.Helper()
	if meeting.Status == "" {
		meeting.Status = models.MeetingStatusScheduled
	}
	if meeting.OwnerEmail == "" {
		meeting.OwnerEmail = "owner@example.com"
	}
	require.NoError(t, f.meetings.Create(context.Background(), meeting))
	return meeting
}

func (f *storeFixture) createUser(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &models.User{Email: email, CreatedAt: testNow}))
}

func unconfiguredValidator() *mocks.MockWebhookValidator {
	v := &mocks.MockWebhookValidator{}
	v.On("Configured").Return(false)
	return v
}

func readyTranscript(id, meetingURL string) *models.ProviderTranscript {
	return &models.ProviderTranscript{
		ID:              id,
		Title:           "Weekly sync",
		DurationMinutes: 1.5,
		MeetingURL:      meetingURL,
		Summary: &models.ProviderSummary{
			Overview: models.ScalarText("Discussed the release."),
			Keywords: models.ListText("release", "nats"),
		},
		Sentences: []models.Sentence{
			{SpeakerName: "Ada", Text: "Hello", StartTime: floatPtr(0), EndTime: floatPtr(1.2)},
			{SpeakerName: "Linus", Text: "Ship it", StartTime: floatPtr(65.9)},
		},
	}
}
