// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/utils"
)

// ScheduleMeetingRequest is the input of MeetingService.Schedule.
type ScheduleMeetingRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	Participants []string   `json:"participants,omitempty"`
	MeetingURL   string     `json:"meeting_url,omitempty"`
	// InviteBot defaults to true when omitted.
	InviteBot *bool `json:"invite_bot,omitempty"`
}

// LaunchMeetingRequest is the input of MeetingService.Launch.
type LaunchMeetingRequest struct {
	MeetingUID string `json:"meeting_uid"`
	MeetingURL string `json:"meeting_url,omitempty"`
}

// MeetingService implements the meeting lifecycle of a registered user.
type MeetingService struct {
	MeetingRepository domain.MeetingRepository
	UserRepository    domain.UserRepository
	Provider          domain.TranscriptProvider
	MessageBuilder    domain.MessageBuilder
	Config            ServiceConfig
}

// NewMeetingService creates a new MeetingService.
func NewMeetingService(
	meetingRepository domain.MeetingRepository,
	userRepository domain.UserRepository,
	provider domain.TranscriptProvider,
	messageBuilder domain.MessageBuilder,
	config ServiceConfig,
) *MeetingService {
	return &MeetingService{
		MeetingRepository: meetingRepository,
		UserRepository:    userRepository,
		Provider:          provider,
		MessageBuilder:    messageBuilder,
		Config:            config,
	}
}

// ServiceReady checks if the service is ready to serve requests
func (s *MeetingService) ServiceReady() bool {
	return s.MeetingRepository != nil &&
		s.UserRepository != nil &&
		s.Provider != nil &&
		s.MessageBuilder != nil
}

func (s *MeetingService) notReady(ctx context.Context) error {
	slog.ErrorContext(ctx, "meeting service not initialized", logging.PriorityCritical())
	return domain.NewUnavailableError("meeting service not initialized")
}

// requireUser returns the registered user for email.
func requireUser(ctx context.Context, users domain.UserRepository, email string) (*models.User, error) {
	if models.NormalizeEmail(email) == "" {
		return nil, domain.NewValidationError("user email is required")
	}
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewNotFoundError("user not found, register first", err)
		}
		slog.ErrorContext(ctx, "failed to load user", logging.ErrKey, err)
		return nil, err
	}
	return user, nil
}

// Schedule creates a scheduled meeting owned by email. When a meeting URL is
// given the provider bot is invited unless the request opts out.
func (s *MeetingService) Schedule(ctx context.Context, email string, req ScheduleMeetingRequest) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	if req.ScheduledAt == nil || req.ScheduledAt.IsZero() {
		return nil, domain.NewValidationError("scheduled_at is required")
	}

	user, err := requireUser(ctx, s.UserRepository, email)
	if err != nil {
		return nil, err
	}

	joinURL := strings.TrimSpace(req.MeetingURL)
	if joinURL == "" {
		joinURL = utils.MeetingLink(req.Description)
	}

	now := s.Config.now()
	scheduledAt := req.ScheduledAt.UTC()
	meeting := &models.Meeting{
		OwnerEmail:   user.Email,
		Title:        title,
		Description:  req.Description,
		Participants: cleanParticipants(req.Participants),
		ScheduledAt:  &scheduledAt,
		JoinURL:      joinURL,
		Status:       models.MeetingStatusScheduled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.MeetingRepository.Create(ctx, meeting); err != nil {
		slog.ErrorContext(ctx, "failed to create meeting", logging.ErrKey, err)
		return nil, err
	}

	if err := s.MessageBuilder.SendIndexMeeting(ctx, models.ActionCreated, *meeting); err != nil {
		slog.WarnContext(ctx, "failed to publish meeting creation message", logging.ErrKey, err,
			"meeting_uid", meeting.UID)
	}

	slog.InfoContext(ctx, "meeting scheduled", "meeting_uid", meeting.UID, "owner", user.Email)

	inviteBot := req.InviteBot == nil || *req.InviteBot
	if inviteBot && meeting.JoinURL != "" {
		meeting = s.inviteBot(ctx, meeting)
	}
	return meeting, nil
}

// Launch moves an owned meeting to in progress and invites the provider bot.
// Launching a meeting that is already in progress returns it unchanged.
func (s *MeetingService) Launch(ctx context.Context, email string, req LaunchMeetingRequest) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}

	meeting, revision, err := s.ownedWithRevision(ctx, email, req.MeetingUID)
	if err != nil {
		return nil, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meeting.UID))

	if meeting.Status == models.MeetingStatusInProgress {
		slog.InfoContext(ctx, "meeting already launched")
		return meeting, nil
	}

	if url := strings.TrimSpace(req.MeetingURL); url != "" {
		meeting.JoinURL = url
	}
	if meeting.JoinURL == "" {
		return nil, domain.NewValidationError("no meeting URL available, provide meeting_url")
	}

	meeting.Status = models.MeetingStatusInProgress
	meeting.UpdatedAt = s.Config.now()
	if err := s.MeetingRepository.Update(ctx, meeting, revision); err != nil {
		slog.ErrorContext(ctx, "failed to launch meeting", logging.ErrKey, err)
		return nil, err
	}

	if err := s.MessageBuilder.SendIndexMeeting(ctx, models.ActionUpdated, *meeting); err != nil {
		slog.WarnContext(ctx, "failed to publish meeting update message", logging.ErrKey, err)
	}
	slog.InfoContext(ctx, "meeting launched")

	return s.inviteBot(ctx, meeting), nil
}

// List returns the meetings owned by email, latest scheduled first.
func (s *MeetingService) List(ctx context.Context, email string) ([]*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}

	user, err := requireUser(ctx, s.UserRepository, email)
	if err != nil {
		return nil, err
	}

	meetings, err := s.MeetingRepository.ListByOwner(ctx, user.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list meetings", logging.ErrKey, err)
		return nil, err
	}

	sort.SliceStable(meetings, func(i, j int) bool {
		a, b := meetings[i].ScheduledAt, meetings[j].ScheduledAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return meetings, nil
}

// Get returns a meeting owned by email.
func (s *MeetingService) Get(ctx context.Context, email, meetingUID string) (*models.Meeting, error) {
	if !s.ServiceReady() {
		return nil, s.notReady(ctx)
	}

	meeting, _, err := s.ownedWithRevision(ctx, email, meetingUID)
	return meeting, err
}

func (s *MeetingService) ownedWithRevision(ctx context.Context, email, meetingUID string) (*models.Meeting, uint64, error) {
	meetingUID = strings.TrimSpace(meetingUID)
	if meetingUID == "" {
		return nil, 0, domain.NewValidationError("meeting uid is required")
	}

	meeting, revision, err := s.MeetingRepository.GetWithRevision(ctx, meetingUID)
	if err != nil {
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.ErrorContext(ctx, "failed to load meeting", logging.ErrKey, err, "meeting_uid", meetingUID)
		}
		return nil, 0, err
	}
	if !meeting.OwnedBy(email) {
		slog.WarnContext(ctx, "meeting access denied", "meeting_uid", meetingUID)
		return nil, 0, domain.NewForbiddenError("meeting belongs to another user")
	}
	return meeting, revision, nil
}

// inviteBot asks the provider to join the meeting and records the join URL as
// pending until the provider's meeting id arrives by webhook. Failures are
// logged and the meeting is returned as it was.
func (s *MeetingService) inviteBot(ctx context.Context, meeting *models.Meeting) *models.Meeting {
	if meeting.BotInvited() {
		slog.InfoContext(ctx, "bot already invited", "meeting_uid", meeting.UID)
		return meeting
	}

	result, err := s.Provider.InviteBot(ctx, meeting.JoinURL, meeting.Title)
	if err != nil {
		slog.ErrorContext(ctx, "bot invite failed", logging.ErrKey, err, "meeting_uid", meeting.UID)
		return meeting
	}
	if result == nil || !result.Success {
		var message string
		if result != nil {
			message = result.Message
		}
		slog.WarnContext(ctx, "bot invite was not accepted",
			"meeting_uid", meeting.UID, "message", message)
		return meeting
	}

	current, revision, err := s.MeetingRepository.GetWithRevision(ctx, meeting.UID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to reload meeting after bot invite", logging.ErrKey, err,
			"meeting_uid", meeting.UID)
		return meeting
	}
	if current.BotInvited() {
		return current
	}

	current.PendingURL = current.JoinURL
	current.UpdatedAt = s.Config.now()
	if err := s.MeetingRepository.Update(ctx, current, revision); err != nil {
		slog.ErrorContext(ctx, "failed to record bot invite", logging.ErrKey, err,
			"meeting_uid", meeting.UID)
		return meeting
	}

	if err := s.MessageBuilder.SendIndexMeeting(ctx, models.ActionUpdated, *current); err != nil {
		slog.WarnContext(ctx, "failed to publish meeting update message", logging.ErrKey, err,
			"meeting_uid", current.UID)
	}
	slog.InfoContext(ctx, "bot invited to meeting", "meeting_uid", current.UID, "message", result.Message)
	return current
}

func cleanParticipants(participants []string) []string {
	var out []string
	for _, p := range participants {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
