// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"strings"
	"time"
)

// ProviderUser is the account profile the provider API key belongs to.
type ProviderUser struct {
	UserID          string  `json:"user_id"`
	Email           string  `json:"email"`
	Name            string  `json:"name"`
	MinutesConsumed float64 `json:"minutes_consumed"`
	IsAdmin         bool    `json:"is_admin"`
}

// TextField is a provider field that arrives either as a single string or as
// a list of strings. The zero value is an absent field.
type TextField struct {
	Scalar string
	List   []string
	IsList bool
}

// ScalarText builds a present scalar TextField.
func ScalarText(s string) TextField {
	return TextField{Scalar: s}
}

// ListText builds a present list TextField.
func ListText(items ...string) TextField {
	return TextField{List: items, IsList: true}
}

// Present reports whether the field carries any content. Empty strings and
// empty lists count as absent.
func (f TextField) Present() bool {
	if f.IsList {
		for _, item := range f.List {
			if strings.TrimSpace(item) != "" {
				return true
			}
		}
		return false
	}
	return strings.TrimSpace(f.Scalar) != ""
}

// Join returns the scalar verbatim, or the non-empty list items joined by sep.
func (f TextField) Join(sep string) string {
	if !f.IsList {
		return f.Scalar
	}
	items := make([]string, 0, len(f.List))
	for _, item := range f.List {
		if strings.TrimSpace(item) == "" {
			continue
		}
		items = append(items, item)
	}
	return strings.Join(items, sep)
}

// ProviderSummary is the AI summary block of a provider transcript.
type ProviderSummary struct {
	Overview        TextField
	Keywords        TextField
	ShorthandBullet TextField
	ActionItems     TextField
}

// Empty reports whether no summary section is present.
func (s *ProviderSummary) Empty() bool {
	return s == nil ||
		(!s.Overview.Present() && !s.Keywords.Present() && !s.ShorthandBullet.Present() && !s.ActionItems.Present())
}

// Sentence is a single spoken sentence. Offsets are seconds from the start of
// the recording.
type Sentence struct {
	SpeakerName string
	Text        string
	StartTime   *float64
	EndTime     *float64
}

// ProviderTranscript is a transcript as returned by the provider.
type ProviderTranscript struct {
	ID              string
	Title           string
	Date            *time.Time
	DurationMinutes float64
	MeetingURL      string
	OrganizerEmail  string
	Participants    []string
	Summary         *ProviderSummary
	Sentences       []Sentence
}

// Ready reports whether the provider has produced a transcript body.
func (t *ProviderTranscript) Ready() bool {
	return t != nil && (len(t.Sentences) > 0 || !t.Summary.Empty())
}

// ProviderTranscriptSummary is one row of the provider transcript listing.
type ProviderTranscriptSummary struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Date            *time.Time `json:"date,omitempty"`
	DurationMinutes float64    `json:"duration"`
	MeetingURL      string     `json:"meeting_link,omitempty"`
	OrganizerEmail  string     `json:"organizer_email,omitempty"`
	Participants    []string   `json:"participants,omitempty"`
}

// BotInviteResult is the outcome of asking the provider bot to join a meeting.
type BotInviteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
