// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// NATS subjects the proxy publishes to.
const (
	// IndexMeetingSubject is the subject for meeting indexing.
	// The subject is of the form: lfx.index.fireflies_meeting
	IndexMeetingSubject = "lfx.index.fireflies_meeting"

	// IndexTranscriptSubject is the subject for transcript indexing.
	// The subject is of the form: lfx.index.fireflies_transcript
	IndexTranscriptSubject = "lfx.index.fireflies_transcript"

	// TranscriptCreatedSubject announces a newly persisted transcript.
	TranscriptCreatedSubject = "lfx.fireflies-proxy.transcript_created"

	// MeetingCompletedSubject announces a meeting moving to completed.
	MeetingCompletedSubject = "lfx.fireflies-proxy.meeting_completed"
)

// MessageAction is a type for the action of a message.
type MessageAction string

// MessageAction constants for the action of a message.
const (
	// ActionCreated is the action for a resource creation message.
	ActionCreated MessageAction = "created"
	// ActionUpdated is the action for a resource update message.
	ActionUpdated MessageAction = "updated"
	// ActionDeleted is the action for a resource deletion message.
	ActionDeleted MessageAction = "deleted"
)

// IndexerMessage is the envelope sent to the indexer.
type IndexerMessage struct {
	Action  MessageAction     `json:"action"`
	Headers map[string]string `json:"headers"`
	Data    any               `json:"data"`
	Tags    []string          `json:"tags"`
}

// TranscriptCreatedEvent is published once per persisted transcript.
type TranscriptCreatedEvent struct {
	TranscriptUID        string `json:"transcript_uid"`
	MeetingUID           string `json:"meeting_uid"`
	ExternalTranscriptID string `json:"external_transcript_id,omitempty"`
	OwnerEmail           string `json:"owner_email,omitempty"`
	Title                string `json:"title,omitempty"`
}

// MeetingCompletedEvent is published when a meeting reaches completed.
type MeetingCompletedEvent struct {
	MeetingUID string `json:"meeting_uid"`
	ExternalID string `json:"external_id,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
}
