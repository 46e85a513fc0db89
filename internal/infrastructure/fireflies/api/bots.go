// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

const addToLiveMeetingMutation = `mutation AddToLiveMeeting($meeting_link: String!, $title: String) {
  addToLiveMeeting(meeting_link: $meeting_link, title: $title) {
    success
    message
  }
}`

// InviteBot asks the Fireflies notetaker to join a live meeting.
func (c *Client) InviteBot(ctx context.Context, meetingURL, title string) (*models.BotInviteResult, error) {
	meetingURL = strings.TrimSpace(meetingURL)
	if meetingURL == "" {
		return nil, domain.NewValidationError("meeting link is required")
	}
	ctx = logging.AppendCtx(ctx, slog.String("fireflies_operation", "invite_bot"))

	variables := map[string]any{"meeting_link": meetingURL}
	if title = strings.TrimSpace(title); title != "" {
		variables["title"] = title
	}

	var data struct {
		AddToLiveMeeting *wireBotInvite `json:"addToLiveMeeting"`
	}
	if err := c.execute(ctx, "invite_bot", addToLiveMeetingMutation, variables, &data); err != nil {
		slog.ErrorContext(ctx, "failed to invite Fireflies bot", "meeting_url", meetingURL, logging.ErrKey, err)
		return nil, err
	}
	if data.AddToLiveMeeting == nil {
		return nil, &domain.UpstreamError{Status: http.StatusOK, Message: "addToLiveMeeting result missing from response"}
	}

	result := &models.BotInviteResult{
		Success: bool(data.AddToLiveMeeting.Success),
		Message: string(data.AddToLiveMeeting.Message),
	}
	slog.InfoContext(ctx, "Fireflies bot invite sent",
		"meeting_url", meetingURL,
		"success", result.Success,
		"message", result.Message)
	return result, nil
}
