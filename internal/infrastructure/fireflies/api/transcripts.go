// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

// MaxListLimit is the largest page the transcripts listing accepts.
const MaxListLimit = 50

const (
	transcriptQuery = `query Transcript($id: String!) {
  transcript(id: $id) {
    id
    title
    date
    duration
    meeting_link
    organizer_email
    participants
    summary { overview action_items keywords shorthand_bullet }
    sentences { text speaker_name start_time end_time }
  }
}`

	transcriptsQuery = `query Transcripts($limit: Int, $skip: Int) {
  transcripts(limit: $limit, skip: $skip) {
    id
    title
    date
    duration
    meeting_link
    organizer_email
    participants
  }
}`
)

// FetchTranscript returns the transcript with the given Fireflies id.
//
// It returns (nil, nil) while Fireflies is still processing the recording.
// Only ready transcripts are cached. A rate limited call falls back to the
// last cached copy when there is one.
func (c *Client) FetchTranscript(ctx context.Context, externalID string) (*models.ProviderTranscript, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, domain.NewValidationError("transcript id is required")
	}
	ctx = logging.AppendCtx(ctx, slog.String("fireflies_operation", "fetch_transcript"))
	ctx = logging.AppendCtx(ctx, slog.String("fireflies_transcript_id", externalID))

	if transcript, ok := c.transcripts.Get(externalID); ok {
		c.recordCacheLookup(ctx, "transcript", "hit")
		slog.DebugContext(ctx, "transcript served from cache")
		return transcript, nil
	}
	c.recordCacheLookup(ctx, "transcript", "miss")

	var data struct {
		Transcript *wireTranscript `json:"transcript"`
	}
	err := c.execute(ctx, "fetch_transcript", transcriptQuery, map[string]any{"id": externalID}, &data)
	if err != nil {
		var limited *domain.RateLimitedError
		if errors.As(err, &limited) {
			if transcript, ok := c.transcripts.GetStale(externalID); ok {
				c.recordCacheLookup(ctx, "transcript", "stale")
				return transcript, nil
			}
		}
		return nil, err
	}

	if data.Transcript == nil || !data.Transcript.present {
		slog.InfoContext(ctx, "transcript not available yet")
		return nil, nil
	}

	transcript := data.Transcript.toModel()
	if transcript.ID == "" {
		transcript.ID = externalID
	}
	if !transcript.Ready() {
		slog.InfoContext(ctx, "transcript has no body yet", "meeting_url", transcript.MeetingURL)
		return nil, nil
	}

	c.transcripts.Set(externalID, transcript)
	slog.DebugContext(ctx, "fetched transcript",
		"sentence_count", len(transcript.Sentences),
		"has_summary", !transcript.Summary.Empty())
	return transcript, nil
}

// ListTranscripts returns one page of the account's transcripts, newest first.
func (c *Client) ListTranscripts(ctx context.Context, limit, skip int) ([]models.ProviderTranscriptSummary, error) {
	if limit < 1 || limit > MaxListLimit {
		return nil, domain.NewValidationError("limit must be between 1 and 50")
	}
	if skip < 0 {
		return nil, domain.NewValidationError("skip must not be negative")
	}
	ctx = logging.AppendCtx(ctx, slog.String("fireflies_operation", "list_transcripts"))

	var data struct {
		Transcripts objectList[wireTranscript] `json:"transcripts"`
	}
	variables := map[string]any{"limit": limit, "skip": skip}
	if err := c.execute(ctx, "list_transcripts", transcriptsQuery, variables, &data); err != nil {
		return nil, err
	}

	summaries := make([]models.ProviderTranscriptSummary, 0, len(data.Transcripts))
	for _, t := range data.Transcripts {
		summaries = append(summaries, t.toSummaryModel())
	}

	slog.DebugContext(ctx, "listed transcripts", "count", len(summaries), "limit", limit, "skip", skip)
	return summaries, nil
}
