// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextField(t *testing.T) {
	tests := []struct {
		name    string
		field   TextField
		present bool
		joined  string
	}{
		{"absent", TextField{}, false, ""},
		{"blank scalar", ScalarText("  "), false, "  "},
		{"scalar kept verbatim", ScalarText("a, b"), true, "a, b"},
		{"empty list", ListText(), false, ""},
		{"list of blanks", ListText("", " "), false, ""},
		{"list skips blanks", ListText("go", "", "nats"), true, "go|nats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.present, tt.field.Present())
			assert.Equal(t, tt.joined, tt.field.Join("|"))
		})
	}
}

func TestProviderSummary_Empty(t *testing.T) {
	assert.True(t, (*ProviderSummary)(nil).Empty())
	assert.True(t, (&ProviderSummary{Keywords: ListText()}).Empty())
	assert.False(t, (&ProviderSummary{ActionItems: ScalarText("ship it")}).Empty())
}

func TestProviderTranscript_Ready(t *testing.T) {
	assert.False(t, (*ProviderTranscript)(nil).Ready())
	assert.False(t, (&ProviderTranscript{MeetingURL: "https://zoom.example/1"}).Ready())
	assert.True(t, (&ProviderTranscript{Sentences: []Sentence{{Text: "hi"}}}).Ready())
	assert.True(t, (&ProviderTranscript{Summary: &ProviderSummary{Overview: ScalarText("done")}}).Ready())
}
