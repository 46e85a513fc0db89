// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
)

// MeetingIndexSender handles indexing operations for meetings.
type MeetingIndexSender interface {
	SendIndexMeeting(ctx context.Context, action models.MessageAction, data models.Meeting) error
}

// TranscriptIndexSender handles indexing operations for transcripts.
type TranscriptIndexSender interface {
	SendIndexTranscript(ctx context.Context, action models.MessageAction, data models.Transcript) error
}

// EventSender publishes proxy lifecycle events.
type EventSender interface {
	SendTranscriptCreated(ctx context.Context, event models.TranscriptCreatedEvent) error
	SendMeetingCompleted(ctx context.Context, event models.MeetingCompletedEvent) error
}

// MessageBuilder is the full set of outbound messages the proxy sends.
type MessageBuilder interface {
	MeetingIndexSender
	TranscriptIndexSender
	EventSender
}
