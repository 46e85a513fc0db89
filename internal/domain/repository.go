// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
)

// MeetingRepository defines the storage operations for meetings.
// The Find* lookups return a NotFound domain error on miss.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	Get(ctx context.Context, meetingUID string) (*models.Meeting, error)
	GetWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error)
	Update(ctx context.Context, meeting *models.Meeting, revision uint64) error

	FindByExternalID(ctx context.Context, externalID string) (*models.Meeting, error)
	FindByPendingURL(ctx context.Context, url string) (*models.Meeting, error)
	FindByJoinURL(ctx context.Context, url string) (*models.Meeting, error)

	ListAll(ctx context.Context) ([]*models.Meeting, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]*models.Meeting, error)
}

// TranscriptRepository defines the storage operations for transcripts.
// Transcripts are keyed by meeting, so Create returns a Conflict domain error
// when the meeting already has one.
type TranscriptRepository interface {
	Create(ctx context.Context, transcript *models.Transcript) error
	GetByMeetingUID(ctx context.Context, meetingUID string) (*models.Transcript, error)
	GetByExternalID(ctx context.Context, externalTranscriptID string) (*models.Transcript, error)
}

// UserRepository defines the storage operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
