// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

// TranscriptService serves stored transcripts to meeting owners and proxies
// the provider's transcript listing.
type TranscriptService struct {
	MeetingRepository domain.MeetingRepository
	UserRepository    domain.UserRepository
	Provider          domain.TranscriptProvider
	Builder           *TranscriptBuilder
}

// NewTranscriptService creates a new TranscriptService.
func NewTranscriptService(
	meetingRepository domain.MeetingRepository,
	userRepository domain.UserRepository,
	provider domain.TranscriptProvider,
	builder *TranscriptBuilder,
) *TranscriptService {
	return &TranscriptService{
		MeetingRepository: meetingRepository,
		UserRepository:    userRepository,
		Provider:          provider,
		Builder:           builder,
	}
}

// ServiceReady checks if the service is ready to serve requests
func (s *TranscriptService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.UserRepository != nil &&
		s.Provider != nil &&
		s.Builder != nil && s.Builder.ServiceReady()
}

// GetForMeeting returns the transcript of a meeting owned by email. A meeting
// bound to a provider id without a stored transcript is fetched and built on
// demand; ErrTranscriptNotReady means the provider has nothing yet.
func (s *TranscriptService) GetForMeeting(ctx context.Context, email, meetingUID string) (*models.Transcript, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "transcript service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("transcript service not initialized")
	}
	if meetingUID == "" {
		return nil, domain.NewValidationError("meeting uid is required")
	}

	meeting, err := s.MeetingRepository.Get(ctx, meetingUID)
	if err != nil {
		return nil, err
	}
	if !meeting.OwnedBy(email) {
		return nil, domain.NewForbiddenError("meeting belongs to another user")
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meeting.UID))

	transcript, err := s.Builder.Existing(ctx, meeting.UID)
	if err != nil {
		return nil, err
	}
	if transcript != nil {
		return transcript, nil
	}

	if !meeting.HasExternalID() {
		slog.InfoContext(ctx, "transcript not stored yet, waiting for webhook")
		return nil, domain.ErrTranscriptNotReady
	}

	payload, err := s.Provider.FetchTranscript(ctx, meeting.ExternalID)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch transcript on demand", logging.ErrKey, err)
		return nil, err
	}
	if payload == nil {
		return nil, domain.ErrTranscriptNotReady
	}

	return s.Builder.Build(ctx, meeting, payload)
}

// ListProvider lists the transcripts known to the provider. A zero limit uses
// the default page size.
func (s *TranscriptService) ListProvider(ctx context.Context, email string, limit, skip int) ([]models.ProviderTranscriptSummary, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "transcript service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("transcript service not initialized")
	}

	if _, err := requireUser(ctx, s.UserRepository, email); err != nil {
		return nil, err
	}

	if limit == 0 {
		limit = constants.DefaultTranscriptPageSize
	}
	if limit < 1 || limit > constants.MaxTranscriptPageSize {
		return nil, domain.NewValidationError("limit must be between 1 and 50")
	}
	if skip < 0 {
		return nil, domain.NewValidationError("skip must not be negative")
	}

	return s.Provider.ListTranscripts(ctx, limit, skip)
}
