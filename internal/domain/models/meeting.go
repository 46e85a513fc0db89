// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"strings"
	"time"
)

// MeetingStatus is the lifecycle status of a locally tracked meeting.
type MeetingStatus string

const (
	MeetingStatusScheduled  MeetingStatus = "scheduled"
	MeetingStatusInProgress MeetingStatus = "in_progress"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusInProgress, MeetingStatusCompleted, MeetingStatusCancelled:
		return true
	}
	return false
}

// Meeting is a meeting created by a local user that the provider bot may
// attend. Correlation with provider events happens in two phases: while the
// bot invite is outstanding only PendingURL is known, and once a webhook
// arrives the provider meeting id is bound into ExternalID.
type Meeting struct {
	UID          string        `json:"uid"`
	OwnerEmail   string        `json:"owner_email"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Participants []string      `json:"participants,omitempty"`
	ScheduledAt  *time.Time    `json:"scheduled_at,omitempty"`
	JoinURL      string        `json:"join_url,omitempty"`
	PendingURL   string        `json:"pending_url,omitempty"`
	ExternalID   string        `json:"external_id,omitempty"`
	Status       MeetingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasExternalID reports whether a real provider meeting id has been bound.
// Records written before the two-phase fields existed stored the invite URL
// in ExternalID; those are not treated as bound.
func (m *Meeting) HasExternalID() bool {
	if m == nil || m.ExternalID == "" {
		return false
	}
	return !LooksLikeURL(m.ExternalID)
}

// BotInvited reports whether a bot invite is outstanding or already bound.
func (m *Meeting) BotInvited() bool {
	return m != nil && (m.PendingURL != "" || m.ExternalID != "")
}

// BindExternalID records the provider meeting id and leaves the placeholder
// phase. It returns the previously bound real id, if any.
func (m *Meeting) BindExternalID(externalID string, now time.Time) (previous string) {
	if m.HasExternalID() {
		previous = m.ExternalID
	}
	m.ExternalID = externalID
	m.PendingURL = ""
	m.UpdatedAt = now
	return previous
}

// OwnedBy reports whether email owns the meeting, compared case-insensitively.
func (m *Meeting) OwnedBy(email string) bool {
	return m != nil && strings.EqualFold(m.OwnerEmail, strings.TrimSpace(email))
}

// Tags builds the indexer tags for the meeting.
func (m *Meeting) Tags() []string {
	if m == nil {
		return nil
	}

	tags := []string{m.UID, fmt.Sprintf("meeting_uid:%s", m.UID)}
	if m.OwnerEmail != "" {
		tags = append(tags, fmt.Sprintf("owner:%s", m.OwnerEmail))
	}
	if m.HasExternalID() {
		tags = append(tags, fmt.Sprintf("external_id:%s", m.ExternalID))
	}
	if m.Status != "" {
		tags = append(tags, fmt.Sprintf("status:%s", m.Status))
	}
	return tags
}

// LooksLikeURL reports whether s is an absolute http(s) URL.
func LooksLikeURL(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
