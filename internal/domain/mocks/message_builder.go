// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
)

// MockMessageBuilder implements domain.MessageBuilder for testing
type MockMessageBuilder struct {
	mock.Mock
}

func (m *MockMessageBuilder) SendIndexMeeting(ctx context.Context, action models.MessageAction, data models.Meeting) error {
	args := m.Called(ctx, action, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendIndexTranscript(ctx context.Context, action models.MessageAction, data models.Transcript) error {
	args := m.Called(ctx, action, data)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendTranscriptCreated(ctx context.Context, event models.TranscriptCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockMessageBuilder) SendMeetingCompleted(ctx context.Context, event models.MeetingCompletedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// NewPermissiveMessageBuilder returns a builder that accepts every message.
func NewPermissiveMessageBuilder() *MockMessageBuilder {
	m := &MockMessageBuilder{}
	m.On("SendIndexMeeting", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SendIndexTranscript", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SendTranscriptCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SendMeetingCompleted", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}
