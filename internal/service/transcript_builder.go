// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

const maxStatusUpdateAttempts = 3

// TranscriptBuilder turns provider transcripts into local transcripts and
// persists them at most once per meeting.
type TranscriptBuilder struct {
	TranscriptRepository domain.TranscriptRepository
	MeetingRepository    domain.MeetingRepository
	MessageBuilder       domain.MessageBuilder
	Config               ServiceConfig
}

// NewTranscriptBuilder creates a new TranscriptBuilder.
func NewTranscriptBuilder(
	transcriptRepository domain.TranscriptRepository,
	meetingRepository domain.MeetingRepository,
	messageBuilder domain.MessageBuilder,
	config ServiceConfig,
) *TranscriptBuilder {
	return &TranscriptBuilder{
		TranscriptRepository: transcriptRepository,
		MeetingRepository:    meetingRepository,
		MessageBuilder:       messageBuilder,
		Config:               config,
	}
}

// ServiceReady checks if the builder can persist transcripts.
func (b *TranscriptBuilder) ServiceReady() bool {
	return b.TranscriptRepository != nil && b.MeetingRepository != nil && b.MessageBuilder != nil
}

// Build persists the transcript for meeting and marks the meeting completed.
// When the meeting already has a transcript it is returned unchanged and
// payload may be nil; otherwise a nil payload is ErrTranscriptNotReady.
func (b *TranscriptBuilder) Build(ctx context.Context, meeting *models.Meeting, payload *models.ProviderTranscript) (*models.Transcript, error) {
	if !b.ServiceReady() {
		slog.ErrorContext(ctx, "transcript builder not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("transcript builder not initialized")
	}
	if meeting == nil || meeting.UID == "" {
		return nil, domain.NewValidationError("meeting is required")
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meeting.UID))

	existing, err := b.Existing(ctx, meeting.UID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.InfoContext(ctx, "transcript already exists for meeting, skipping save",
			"transcript_uid", existing.UID)
		if err := b.markCompleted(ctx, meeting); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if payload == nil {
		return nil, domain.ErrTranscriptNotReady
	}

	now := b.Config.now()
	transcript := &models.Transcript{
		UID:                  uuid.New().String(),
		MeetingUID:           meeting.UID,
		ExternalTranscriptID: strings.TrimSpace(payload.ID),
		Title:                payload.Title,
		Content:              BuildContent(payload.Sentences),
		Summary:              ComposeSummary(payload.Summary),
		ActionItems:          ExtractActionItems(payload.Summary),
		SpeakerLabels:        SpeakerLabels(ctx, payload.Sentences),
		DurationSeconds:      payload.DurationMinutes * 60,
		ProcessedAt:          now,
		CreatedAt:            now,
	}

	if err := b.TranscriptRepository.Create(ctx, transcript); err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			slog.ErrorContext(ctx, "failed to create transcript", logging.ErrKey, err)
			return nil, err
		}

		// Another delivery won the race.
		winner, getErr := b.TranscriptRepository.GetByMeetingUID(ctx, meeting.UID)
		if getErr != nil {
			slog.ErrorContext(ctx, "failed to read transcript after create conflict", logging.ErrKey, getErr)
			return nil, getErr
		}
		slog.InfoContext(ctx, "transcript created concurrently, using existing record",
			"transcript_uid", winner.UID)
		if err := b.markCompleted(ctx, meeting); err != nil {
			return nil, err
		}
		return winner, nil
	}

	if err := b.MessageBuilder.SendIndexTranscript(ctx, models.ActionCreated, *transcript); err != nil {
		slog.WarnContext(ctx, "failed to publish transcript index message", logging.ErrKey, err,
			"transcript_uid", transcript.UID)
	}
	if err := b.MessageBuilder.SendTranscriptCreated(ctx, models.TranscriptCreatedEvent{
		TranscriptUID:        transcript.UID,
		MeetingUID:           meeting.UID,
		ExternalTranscriptID: transcript.ExternalTranscriptID,
		OwnerEmail:           meeting.OwnerEmail,
		Title:                transcript.Title,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish transcript created event", logging.ErrKey, err,
			"transcript_uid", transcript.UID)
	}

	slog.InfoContext(ctx, "transcript saved",
		"transcript_uid", transcript.UID,
		"external_transcript_id", transcript.ExternalTranscriptID,
	)

	if err := b.markCompleted(ctx, meeting); err != nil {
		return nil, err
	}
	return transcript, nil
}

// Existing returns the stored transcript of a meeting, or nil when there is none.
func (b *TranscriptBuilder) Existing(ctx context.Context, meetingUID string) (*models.Transcript, error) {
	transcript, err := b.TranscriptRepository.GetByMeetingUID(ctx, meetingUID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to look up existing transcript", logging.ErrKey, err)
		return nil, err
	}
	return transcript, nil
}

// ExistingForExternalID returns the stored transcript carrying the provider
// transcript id, or nil when none has been saved yet.
func (b *TranscriptBuilder) ExistingForExternalID(ctx context.Context, externalTranscriptID string) (*models.Transcript, error) {
	transcript, err := b.TranscriptRepository.GetByExternalID(ctx, externalTranscriptID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to look up transcript by external id", logging.ErrKey, err,
			"external_transcript_id", externalTranscriptID)
		return nil, err
	}
	return transcript, nil
}

// markCompleted moves the stored meeting to completed, retrying revision
// conflicts. meeting is updated in place.
func (b *TranscriptBuilder) markCompleted(ctx context.Context, meeting *models.Meeting) error {
	for attempt := 1; ; attempt++ {
		current, revision, err := b.MeetingRepository.GetWithRevision(ctx, meeting.UID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load meeting for status update", logging.ErrKey, err)
			return err
		}
		if current.Status == models.MeetingStatusCompleted {
			*meeting = *current
			return nil
		}

		current.Status = models.MeetingStatusCompleted
		current.UpdatedAt = b.Config.now()

		err = b.MeetingRepository.Update(ctx, current, revision)
		if err == nil {
			*meeting = *current
			break
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict || attempt >= maxStatusUpdateAttempts {
			slog.ErrorContext(ctx, "failed to mark meeting completed", logging.ErrKey, err,
				"attempt", attempt)
			return err
		}
		slog.DebugContext(ctx, "meeting modified concurrently, retrying status update",
			"attempt", attempt)
	}

	if err := b.MessageBuilder.SendIndexMeeting(ctx, models.ActionUpdated, *meeting); err != nil {
		slog.WarnContext(ctx, "failed to publish meeting index message", logging.ErrKey, err)
	}
	if err := b.MessageBuilder.SendMeetingCompleted(ctx, models.MeetingCompletedEvent{
		MeetingUID: meeting.UID,
		ExternalID: meeting.ExternalID,
		OwnerEmail: meeting.OwnerEmail,
	}); err != nil {
		slog.WarnContext(ctx, "failed to publish meeting completed event", logging.ErrKey, err)
	}

	slog.InfoContext(ctx, "meeting marked completed")
	return nil
}

// BuildContent renders one "[mm:ss] speaker: text" line per sentence. The
// time prefix is omitted when the sentence has no start time and sentences
// without a speaker or text are skipped.
func BuildContent(sentences []models.Sentence) string {
	var sb strings.Builder
	for _, s := range sentences {
		if s.SpeakerName == "" || s.Text == "" {
			continue
		}
		if s.StartTime != nil {
			sb.WriteString("[")
			sb.WriteString(formatOffset(*s.StartTime))
			sb.WriteString("] ")
		}
		sb.WriteString(s.SpeakerName)
		sb.WriteString(": ")
		sb.WriteString(s.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatOffset renders seconds as mm:ss, truncating both parts. Negative
// offsets render as 00:00.
func formatOffset(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds / 60)
	secs := int(math.Mod(seconds, 60))
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// ComposeSummary renders the overview, keywords and key points as markdown
// sections, omitting absent ones. With no sections at all the raw overview is
// returned.
func ComposeSummary(summary *models.ProviderSummary) string {
	if summary == nil {
		return ""
	}

	var sb strings.Builder
	if summary.Overview.Present() {
		sb.WriteString("## Overview\n")
		sb.WriteString(summary.Overview.Join("\n"))
		sb.WriteString("\n\n")
	}
	if summary.Keywords.Present() {
		sb.WriteString("## Keywords\n")
		sb.WriteString(summary.Keywords.Join(", "))
		sb.WriteString("\n\n")
	}
	if summary.ShorthandBullet.Present() {
		sb.WriteString("## Key Points\n")
		sb.WriteString(summary.ShorthandBullet.Join("\n"))
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return summary.Overview.Join("\n")
	}
	return sb.String()
}

// ExtractActionItems returns scalar action items verbatim and joins lists
// with newlines.
func ExtractActionItems(summary *models.ProviderSummary) string {
	if summary == nil || !summary.ActionItems.Present() {
		return ""
	}
	return summary.ActionItems.Join("\n")
}

// SpeakerLabels serializes the sentences as a JSON array, falling back to
// "[]" when they cannot be encoded.
func SpeakerLabels(ctx context.Context, sentences []models.Sentence) string {
	segments := make([]models.SpeakerSegment, 0, len(sentences))
	for _, s := range sentences {
		segments = append(segments, models.SpeakerSegment{
			Speaker:   s.SpeakerName,
			Text:      s.Text,
			StartTime: finite(s.StartTime),
			EndTime:   finite(s.EndTime),
		})
	}

	data, err := json.Marshal(segments)
	if err != nil {
		slog.WarnContext(ctx, "could not serialize speaker labels", logging.ErrKey, err)
		return "[]"
	}
	return string(data)
}

// finite drops NaN and infinite offsets, which JSON cannot represent.
func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
