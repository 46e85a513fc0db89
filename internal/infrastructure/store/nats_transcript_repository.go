// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

// NatsTranscriptRepository is the NATS KV store repository for transcripts.
// Transcripts are keyed by meeting uid, which makes "one transcript per
// meeting" a property of the key space.
type NatsTranscriptRepository struct {
	*NatsBaseRepository[models.Transcript]
	keyBuilder *KeyBuilder
}

// NewNatsTranscriptRepository creates a new NATS KV store repository for transcripts.
func NewNatsTranscriptRepository(kvStore INatsKeyValue) *NatsTranscriptRepository {
	return &NatsTranscriptRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Transcript](kvStore, "transcript"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// Create stores transcript unless its meeting already has one, in which case
// a Conflict domain error is returned.
func (r *NatsTranscriptRepository) Create(ctx context.Context, transcript *models.Transcript) error {
	if transcript.MeetingUID == "" {
		return domain.NewValidationError("transcript meeting uid is required")
	}
	if transcript.UID == "" {
		transcript.UID = uuid.New().String()
	}

	key := r.keyBuilder.EntityKey(KeyPrefixTranscript, transcript.MeetingUID)
	if err := r.NatsBaseRepository.CreateIfAbsent(ctx, key, transcript); err != nil {
		return err
	}

	if transcript.ExternalTranscriptID != "" {
		indexKey := r.keyBuilder.LookupKey(LookupExternalTranscriptID, transcript.ExternalTranscriptID)
		if err := r.PutIndex(ctx, indexKey, transcript.MeetingUID); err != nil {
			slog.WarnContext(ctx, "failed to write transcript lookup",
				logging.ErrKey, err, "transcript_uid", transcript.UID)
		}
	}
	return nil
}

// GetByMeetingUID retrieves the transcript of a meeting.
func (r *NatsTranscriptRepository) GetByMeetingUID(ctx context.Context, meetingUID string) (*models.Transcript, error) {
	key := r.keyBuilder.EntityKey(KeyPrefixTranscript, meetingUID)
	return r.NatsBaseRepository.Get(ctx, key)
}

// GetByExternalID retrieves a transcript by its provider transcript id.
func (r *NatsTranscriptRepository) GetByExternalID(ctx context.Context, externalTranscriptID string) (*models.Transcript, error) {
	if externalTranscriptID == "" {
		return nil, domain.NewValidationError("external transcript id is required")
	}

	meetingUID, err := r.GetIndex(ctx, r.keyBuilder.LookupKey(LookupExternalTranscriptID, externalTranscriptID))
	if err != nil {
		return nil, err
	}
	return r.GetByMeetingUID(ctx, meetingUID)
}
