// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyWebhookEvent(t *testing.T) {
	tests := []struct {
		raw  string
		kind WebhookEventKind
	}{
		{"Transcription completed", WebhookEventTranscriptionCompleted},
		{"transcript.completed", WebhookEventTranscriptionCompleted},
		{" TRANSCRIPTION COMPLETED ", WebhookEventTranscriptionCompleted},
		{"meeting.started", WebhookEventMeetingStarted},
		{"Meeting started", WebhookEventMeetingStarted},
		{"meeting.ended", WebhookEventMeetingEnded},
		{"Meeting ended", WebhookEventMeetingEnded},
		{"recording.ready", WebhookEventUnknown},
		{"", WebhookEventUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, ClassifyWebhookEvent(tt.raw), "raw %q", tt.raw)
	}
}

func TestParseWebhookEvent(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected WebhookEvent
	}{
		{
			name: "snake case",
			body: `{"event_type":"transcript.completed","meeting_id":"abc"}`,
			expected: WebhookEvent{
				RawType: "transcript.completed", Kind: WebhookEventTranscriptionCompleted, MeetingID: "abc",
			},
		},
		{
			name: "camel case with url and title",
			body: `{"eventType":"Transcription completed","meetingId":"ext-42","meetingUrl":"https://zoom.example/1","title":"Sync"}`,
			expected: WebhookEvent{
				RawType: "Transcription completed", Kind: WebhookEventTranscriptionCompleted, MeetingID: "ext-42",
				MeetingURL: "https://zoom.example/1", Title: "Sync",
			},
		},
		{
			name: "first spelling wins",
			body: `{"event_type":"meeting.started","event":"transcript.completed","meetingId":"a","MeetingId":"b"}`,
			expected: WebhookEvent{
				RawType: "meeting.started", Kind: WebhookEventMeetingStarted, MeetingID: "a",
			},
		},
		{
			name: "blank and wrong typed fields are skipped",
			body: `{"event_type":"  ","event":{"x":1},"eventType":"transcript.completed","meetingId":12345}`,
			expected: WebhookEvent{
				RawType: "transcript.completed", Kind: WebhookEventTranscriptionCompleted, MeetingID: "12345",
			},
		},
		{
			name:     "no event type",
			body:     `{"meetingId":"abc"}`,
			expected: WebhookEvent{Kind: WebhookEventUnknown, MeetingID: "abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseWebhookEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, event)
		})
	}
}

func TestParseWebhookEvent_Invalid(t *testing.T) {
	for _, body := range []string{``, `not json`, `null`, `["event_type"]`, `"text"`} {
		_, err := ParseWebhookEvent([]byte(body))
		assert.Error(t, err, "body %q", body)
	}
}

func TestWebhookState_Terminal(t *testing.T) {
	terminal := []WebhookState{WebhookStatePersisted, WebhookStateRejected, WebhookStateIgnored, WebhookStateDeferred}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []WebhookState{WebhookStateReceived, WebhookStateVerified, WebhookStateClassified, WebhookStateResolved, WebhookStateTranscriptFetched} {
		assert.False(t, s.Terminal(), s)
	}
}
