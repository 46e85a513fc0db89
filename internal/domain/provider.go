// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
)

// TranscriptProvider is the upstream transcription service.
//
// FetchTranscript returns (nil, nil) while the provider is still processing.
// Rate limiting surfaces as *RateLimitedError, other call failures as
// *UpstreamError, and a missing API key as ErrMissingCredential.
type TranscriptProvider interface {
	ProbeIdentity(ctx context.Context) (*models.ProviderUser, error)
	FetchTranscript(ctx context.Context, externalID string) (*models.ProviderTranscript, error)
	ListTranscripts(ctx context.Context, limit, skip int) ([]models.ProviderTranscriptSummary, error)
	InviteBot(ctx context.Context, meetingURL, title string) (*models.BotInviteResult, error)
}

// WebhookValidator checks inbound webhook signatures.
type WebhookValidator interface {
	// Configured reports whether a shared secret is set.
	Configured() bool
	// Validate returns nil when signature matches the payload.
	Validate(payload []byte, signature string) error
}
