// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
)

// The Fireflies payload is loosely typed: the same field may be a string,
// a list or null depending on the transcript. Every wire type below decodes
// without error and treats an unexpected shape as an absent value.

func jsonKind(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	*s = ""
	switch k := jsonKind(b); {
	case k == '"':
		var v string
		if json.Unmarshal(b, &v) == nil {
			*s = flexString(v)
		}
	case k == '-' || (k >= '0' && k <= '9'):
		*s = flexString(bytes.TrimSpace(b))
	}
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat{}
	var raw string
	switch k := jsonKind(b); {
	case k == '"':
		if json.Unmarshal(b, &raw) != nil {
			return nil
		}
	case k == '-' || (k >= '0' && k <= '9'):
		raw = string(bytes.TrimSpace(b))
	default:
		return nil
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		*f = flexFloat{Value: v, Valid: true}
	}
	return nil
}

// Ptr returns nil when the value was absent.
func (f flexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// flexTime accepts epoch milliseconds, either as a number or a string, and
// RFC 3339 strings.
type flexTime struct {
	Time *time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	*t = flexTime{}

	var n flexFloat
	_ = n.UnmarshalJSON(b)
	if n.Valid {
		v := time.UnixMilli(int64(n.Value)).UTC()
		t.Time = &v
		return nil
	}

	var s string
	if jsonKind(b) != '"' || json.Unmarshal(b, &s) != nil {
		return nil
	}
	if v, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
		v = v.UTC()
		t.Time = &v
	}
	return nil
}

// flexText accepts a string or a list of strings.
type flexText models.TextField

func (f *flexText) UnmarshalJSON(b []byte) error {
	*f = flexText{}
	switch jsonKind(b) {
	case '"':
		var s string
		if json.Unmarshal(b, &s) == nil {
			*f = flexText(models.ScalarText(s))
		}
	case '[':
		var items []flexString
		if json.Unmarshal(b, &items) == nil {
			list := make([]string, 0, len(items))
			for _, item := range items {
				list = append(list, string(item))
			}
			*f = flexText(models.ListText(list...))
		}
	}
	return nil
}

// flexStrings accepts a list of strings or a single comma separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	*f = nil
	var out []string
	switch jsonKind(b) {
	case '"':
		var s string
		if json.Unmarshal(b, &s) == nil {
			out = strings.Split(s, ",")
		}
	case '[':
		var items []flexString
		if json.Unmarshal(b, &items) == nil {
			for _, item := range items {
				out = append(out, string(item))
			}
		}
	}
	for _, item := range out {
		if item = strings.TrimSpace(item); item != "" {
			*f = append(*f, item)
		}
	}
	return nil
}

type wireSummary struct {
	Overview        flexText `json:"overview"`
	Keywords        flexText `json:"keywords"`
	ShorthandBullet flexText `json:"shorthand_bullet"`
	ActionItems     flexText `json:"action_items"`

	present bool
}

func (s *wireSummary) UnmarshalJSON(b []byte) error {
	*s = wireSummary{}
	if jsonKind(b) != '{' {
		return nil
	}
	type plain wireSummary
	var p plain
	if json.Unmarshal(b, &p) != nil {
		return nil
	}
	*s = wireSummary(p)
	s.present = true
	return nil
}

type wireSentence struct {
	SpeakerName flexString `json:"speaker_name"`
	Text        flexString `json:"text"`
	StartTime   flexFloat  `json:"start_time"`
	EndTime     flexFloat  `json:"end_time"`
}

// objectList decodes a JSON list, skipping elements that are not objects.
type objectList[T any] []T

func (l *objectList[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	if jsonKind(b) != '[' {
		return nil
	}
	var raw []json.RawMessage
	if json.Unmarshal(b, &raw) != nil {
		return nil
	}
	for _, item := range raw {
		if jsonKind(item) != '{' {
			continue
		}
		var v T
		if json.Unmarshal(item, &v) == nil {
			*l = append(*l, v)
		}
	}
	return nil
}

type wireTranscript struct {
	ID             flexString               `json:"id"`
	Title          flexString               `json:"title"`
	Date           flexTime                 `json:"date"`
	Duration       flexFloat                `json:"duration"`
	OrganizerEmail flexString               `json:"organizer_email"`
	Participants   flexStrings              `json:"participants"`
	Summary        *wireSummary             `json:"summary"`
	Sentences      objectList[wireSentence] `json:"sentences"`

	// The meeting URL has been published under several names.
	MeetingURL      flexString `json:"meeting_url"`
	MeetingURLCamel flexString `json:"meetingUrl"`
	MeetingLink     flexString `json:"meeting_link"`
	URL             flexString `json:"url"`
	VideoURL        flexString `json:"video_url"`

	present bool
}

func (w *wireTranscript) UnmarshalJSON(b []byte) error {
	*w = wireTranscript{}
	if jsonKind(b) != '{' {
		return nil
	}
	type plain wireTranscript
	var p plain
	if json.Unmarshal(b, &p) != nil {
		return nil
	}
	*w = wireTranscript(p)
	w.present = true
	return nil
}

// meetingURL returns the first non-blank URL candidate.
func (w *wireTranscript) meetingURL() string {
	for _, candidate := range []flexString{w.MeetingURL, w.MeetingURLCamel, w.MeetingLink, w.URL, w.VideoURL} {
		if v := strings.TrimSpace(string(candidate)); v != "" {
			return v
		}
	}
	return ""
}

func (w *wireTranscript) toModel() *models.ProviderTranscript {
	t := &models.ProviderTranscript{
		ID:              string(w.ID),
		Title:           string(w.Title),
		Date:            w.Date.Time,
		DurationMinutes: w.Duration.Value,
		MeetingURL:      w.meetingURL(),
		OrganizerEmail:  string(w.OrganizerEmail),
		Participants:    []string(w.Participants),
	}
	if w.Summary != nil && w.Summary.present {
		t.Summary = &models.ProviderSummary{
			Overview:        models.TextField(w.Summary.Overview),
			Keywords:        models.TextField(w.Summary.Keywords),
			ShorthandBullet: models.TextField(w.Summary.ShorthandBullet),
			ActionItems:     models.TextField(w.Summary.ActionItems),
		}
	}
	for _, s := range w.Sentences {
		t.Sentences = append(t.Sentences, models.Sentence{
			SpeakerName: string(s.SpeakerName),
			Text:        string(s.Text),
			StartTime:   s.StartTime.Ptr(),
			EndTime:     s.EndTime.Ptr(),
		})
	}
	return t
}

func (w *wireTranscript) toSummaryModel() models.ProviderTranscriptSummary {
	return models.ProviderTranscriptSummary{
		ID:              string(w.ID),
		Title:           string(w.Title),
		Date:            w.Date.Time,
		DurationMinutes: w.Duration.Value,
		MeetingURL:      w.meetingURL(),
		OrganizerEmail:  string(w.OrganizerEmail),
		Participants:    []string(w.Participants),
	}
}

// flexBool accepts a JSON boolean or the strings "true" and "false".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	*f = false
	var v bool
	if json.Unmarshal(b, &v) == nil {
		*f = flexBool(v)
		return nil
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		parsed, _ := strconv.ParseBool(strings.TrimSpace(s))
		*f = flexBool(parsed)
	}
	return nil
}

type wireUser struct {
	UserID          flexString `json:"user_id"`
	Email           flexString `json:"email"`
	Name            flexString `json:"name"`
	MinutesConsumed flexFloat  `json:"minutes_consumed"`
	IsAdmin         flexBool   `json:"is_admin"`
}

func (w *wireUser) toModel() *models.ProviderUser {
	return &models.ProviderUser{
		UserID:          string(w.UserID),
		Email:           string(w.Email),
		Name:            string(w.Name),
		MinutesConsumed: w.MinutesConsumed.Value,
		IsAdmin:         bool(w.IsAdmin),
	}
}

type wireBotInvite struct {
	Success flexBool   `json:"success"`
	Message flexString `json:"message"`
}
