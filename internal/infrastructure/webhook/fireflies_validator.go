// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
)

var (
	// ErrSecretNotConfigured is returned when validation is attempted without a shared secret.
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	// ErrMissingSignature is returned when the request carries no signature.
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrInvalidSignature is returned when the signature does not match the payload.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// FirefliesWebhookValidator checks Fireflies webhook signatures: an
// HMAC-SHA256 of the raw request body keyed with the shared secret.
type FirefliesWebhookValidator struct {
	secret string
}

// Ensure that FirefliesWebhookValidator implements domain.WebhookValidator
var _ domain.WebhookValidator = (*FirefliesWebhookValidator)(nil)

// NewFirefliesWebhookValidator creates a new Fireflies webhook validator. The
// secret keys the HMAC exactly as given.
func NewFirefliesWebhookValidator(secret string) *FirefliesWebhookValidator {
	return &FirefliesWebhookValidator{secret: secret}
}

// Configured reports whether a shared secret is set. A blank secret counts
// as unset.
func (v *FirefliesWebhookValidator) Configured() bool {
	return strings.TrimSpace(v.secret) != ""
}

// Sign returns the base64 encoded signature of payload.
func (v *FirefliesWebhookValidator) Sign(payload []byte) string {
	return base64.StdEncoding.EncodeToString(v.mac(payload))
}

func (v *FirefliesWebhookValidator) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, []byte(v.secret))
	h.Write(payload)
	return h.Sum(nil)
}

// Validate checks signature against the exact payload bytes. The signature is
// base64 (standard encoding); a hex digest, optionally prefixed "sha256=", is
// accepted as well.
func (v *FirefliesWebhookValidator) Validate(payload []byte, signature string) error {
	if !v.Configured() {
		return ErrSecretNotConfigured
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}

	provided, ok := decodeSignature(signature)
	if !ok {
		return ErrInvalidSignature
	}

	// Compare signatures using constant-time comparison
	if !hmac.Equal(provided, v.mac(payload)) {
		return ErrInvalidSignature
	}
	return nil
}

func decodeSignature(signature string) ([]byte, bool) {
	if digest, ok := strings.CutPrefix(signature, "sha256="); ok {
		decoded, err := hex.DecodeString(digest)
		return decoded, err == nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(signature); err == nil && len(decoded) == sha256.Size {
		return decoded, true
	}
	if len(signature) == hex.EncodedLen(sha256.Size) {
		decoded, err := hex.DecodeString(signature)
		return decoded, err == nil
	}
	return nil, false
}
