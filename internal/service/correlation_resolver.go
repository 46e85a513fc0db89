// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

// CorrelationResolver maps the partial identifiers carried by provider events
// to a locally tracked meeting.
type CorrelationResolver struct {
	MeetingRepository domain.MeetingRepository
}

// NewCorrelationResolver creates a new CorrelationResolver.
func NewCorrelationResolver(meetingRepository domain.MeetingRepository) *CorrelationResolver {
	return &CorrelationResolver{
		MeetingRepository: meetingRepository,
	}
}

// ServiceReady checks if the resolver can serve lookups.
func (r *CorrelationResolver) ServiceReady() bool {
	return r.MeetingRepository != nil
}

type lookupStrategy struct {
	name  string
	value string
	find  func(context.Context, string) (*models.Meeting, error)
}

// Resolve returns the first meeting matched by, in order: the external id,
// a pending bot invite on meetingURL, a legacy record that stored meetingURL
// as its external id, and the join URL. Blank identifiers skip their
// strategies. A miss is (nil, nil).
func (r *CorrelationResolver) Resolve(ctx context.Context, externalID, meetingURL string) (*models.Meeting, error) {
	if !r.ServiceReady() {
		slog.ErrorContext(ctx, "correlation resolver not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("correlation resolver not initialized")
	}

	externalID = strings.TrimSpace(externalID)
	meetingURL = strings.TrimSpace(meetingURL)

	strategies := []lookupStrategy{
		{name: "external_id", value: externalID, find: r.MeetingRepository.FindByExternalID},
		{name: "pending_url", value: meetingURL, find: r.MeetingRepository.FindByPendingURL},
		{name: "legacy_external_url", value: meetingURL, find: r.MeetingRepository.FindByExternalID},
		{name: "join_url", value: meetingURL, find: r.MeetingRepository.FindByJoinURL},
	}

	for _, strategy := range strategies {
		if strategy.value == "" {
			continue
		}

		meeting, err := strategy.find(ctx, strategy.value)
		if err != nil {
			if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
				continue
			}
			slog.ErrorContext(ctx, "meeting lookup failed", logging.ErrKey, err,
				"strategy", strategy.name)
			return nil, err
		}
		if meeting == nil {
			continue
		}

		slog.DebugContext(ctx, "meeting resolved",
			"strategy", strategy.name, "meeting_uid", meeting.UID)
		return meeting, nil
	}

	return nil, nil
}

// ResolveByTitle is the best-effort fallback: a case-insensitive exact title
// match. When several meetings share the title the earliest created wins.
func (r *CorrelationResolver) ResolveByTitle(ctx context.Context, title string) (*models.Meeting, error) {
	if !r.ServiceReady() {
		slog.ErrorContext(ctx, "correlation resolver not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("correlation resolver not initialized")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}

	meetings, err := r.MeetingRepository.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list meetings for title match", logging.ErrKey, err)
		return nil, err
	}

	var matches []*models.Meeting
	for _, meeting := range meetings {
		if strings.EqualFold(strings.TrimSpace(meeting.Title), title) {
			matches = append(matches, meeting)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].UID < matches[j].UID
	})

	chosen := matches[0]
	if len(matches) > 1 {
		slog.WarnContext(ctx, "ambiguous title match, using earliest meeting",
			"title", title, "candidates", len(matches), "meeting_uid", chosen.UID)
	}
	slog.WarnContext(ctx, "meeting matched by title only (best effort)",
		"title", title, "meeting_uid", chosen.UID)
	return chosen, nil
}
