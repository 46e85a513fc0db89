// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// Transcript is the locally persisted, normalized form of a provider
// transcript. There is at most one per meeting.
type Transcript struct {
	UID                  string    `json:"uid"`
	MeetingUID           string    `json:"meeting_uid"`
	ExternalTranscriptID string    `json:"external_transcript_id,omitempty"`
	Title                string    `json:"title,omitempty"`
	Content              string    `json:"content"`
	Summary              string    `json:"summary"`
	ActionItems          string    `json:"action_items"`
	SpeakerLabels        string    `json:"speaker_labels"`
	DurationSeconds      float64   `json:"duration_seconds,omitempty"`
	ProcessedAt          time.Time `json:"processed_at"`
	CreatedAt            time.Time `json:"created_at"`
}

// SpeakerSegment is one normalized sentence stored in Transcript.SpeakerLabels.
type SpeakerSegment struct {
	Speaker   string   `json:"speaker_name"`
	Text      string   `json:"text"`
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
}

// Tags builds the indexer tags for the transcript.
func (t *Transcript) Tags() []string {
	if t == nil {
		return nil
	}

	tags := []string{t.UID, fmt.Sprintf("transcript_uid:%s", t.UID)}
	if t.MeetingUID != "" {
		tags = append(tags, fmt.Sprintf("meeting_uid:%s", t.MeetingUID))
	}
	if t.ExternalTranscriptID != "" {
		tags = append(tags, fmt.Sprintf("external_transcript_id:%s", t.ExternalTranscriptID))
	}
	return tags
}
