// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// WebhookState is a state of the inbound webhook state machine.
type WebhookState string

const (
	WebhookStateReceived          WebhookState = "received"
	WebhookStateVerified          WebhookState = "verified"
	WebhookStateClassified        WebhookState = "classified"
	WebhookStateResolved          WebhookState = "resolved"
	WebhookStateTranscriptFetched WebhookState = "transcript_fetched"
	WebhookStatePersisted         WebhookState = "persisted"

	WebhookStateRejected WebhookState = "rejected"
	WebhookStateIgnored  WebhookState = "ignored"
	WebhookStateDeferred WebhookState = "deferred"
)

// Terminal reports whether no further transition is possible from s.
func (s WebhookState) Terminal() bool {
	switch s {
	case WebhookStatePersisted, WebhookStateRejected, WebhookStateIgnored, WebhookStateDeferred:
		return true
	}
	return false
}

// WebhookEventKind is the classified kind of a provider event.
type WebhookEventKind string

const (
	WebhookEventTranscriptionCompleted WebhookEventKind = "transcription_completed"
	WebhookEventMeetingStarted         WebhookEventKind = "meeting_started"
	WebhookEventMeetingEnded           WebhookEventKind = "meeting_ended"
	WebhookEventUnknown                WebhookEventKind = "unknown"
)

// WebhookEvent is the classified form of an inbound provider event.
type WebhookEvent struct {
	RawType    string
	Kind       WebhookEventKind
	MeetingID  string
	MeetingURL string
	Title      string
}

// WebhookResult reports how far an event got through the state machine.
type WebhookResult struct {
	State         WebhookState `json:"state"`
	Reason        string       `json:"reason,omitempty"`
	EventType     string       `json:"event_type,omitempty"`
	ExternalID    string       `json:"external_id,omitempty"`
	MeetingUID    string       `json:"meeting_uid,omitempty"`
	TranscriptUID string       `json:"transcript_uid,omitempty"`
}

// Field names seen in provider webhook bodies, in lookup order.
var (
	webhookEventTypeKeys  = []string{"event_type", "event", "eventType"}
	webhookMeetingIDKeys  = []string{"meetingId", "meeting_id", "MeetingId"}
	webhookMeetingURLKeys = []string{"meeting_url", "meetingUrl", "meeting_link", "url", "video_url"}
	webhookTitleKeys      = []string{"title", "meeting_title", "meetingTitle"}
)

var webhookEventKinds = map[string]WebhookEventKind{
	"transcription completed": WebhookEventTranscriptionCompleted,
	"transcript.completed":    WebhookEventTranscriptionCompleted,
	"meeting started":         WebhookEventMeetingStarted,
	"meeting.started":         WebhookEventMeetingStarted,
	"meeting ended":           WebhookEventMeetingEnded,
	"meeting.ended":           WebhookEventMeetingEnded,
}

// ClassifyWebhookEvent maps a raw event type to its kind, ignoring case and
// surrounding whitespace.
func ClassifyWebhookEvent(rawType string) WebhookEventKind {
	if kind, ok := webhookEventKinds[strings.ToLower(strings.TrimSpace(rawType))]; ok {
		return kind
	}
	return WebhookEventUnknown
}

// ParseWebhookEvent decodes a provider webhook body. Unknown fields are
// ignored and wrong-typed fields are treated as absent; an error is returned
// only when the body is not a JSON object.
func ParseWebhookEvent(raw []byte) (WebhookEvent, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return WebhookEvent{}, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if fields == nil {
		return WebhookEvent{}, errors.New("invalid webhook payload: body is not an object")
	}

	event := WebhookEvent{
		RawType:    firstString(fields, webhookEventTypeKeys),
		MeetingID:  firstString(fields, webhookMeetingIDKeys),
		MeetingURL: firstString(fields, webhookMeetingURLKeys),
		Title:      firstString(fields, webhookTitleKeys),
	}
	event.Kind = ClassifyWebhookEvent(event.RawType)
	return event, nil
}

func firstString(fields map[string]any, keys []string) string {
	for _, key := range keys {
		var value string
		switch v := fields[key].(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
