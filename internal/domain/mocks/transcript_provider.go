// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
)

// MockTranscriptProvider implements domain.TranscriptProvider for testing
type MockTranscriptProvider struct {
	mock.Mock
}

func (m *MockTranscriptProvider) ProbeIdentity(ctx context.Context) (*models.ProviderUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderUser), args.Error(1)
}

func (m *MockTranscriptProvider) FetchTranscript(ctx context.Context, externalID string) (*models.ProviderTranscript, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderTranscript), args.Error(1)
}

func (m *MockTranscriptProvider) ListTranscripts(ctx context.Context, limit, skip int) ([]models.ProviderTranscriptSummary, error) {
	args := m.Called(ctx, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProviderTranscriptSummary), args.Error(1)
}

func (m *MockTranscriptProvider) InviteBot(ctx context.Context, meetingURL, title string) (*models.BotInviteResult, error) {
	args := m.Called(ctx, meetingURL, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BotInviteResult), args.Error(1)
}
