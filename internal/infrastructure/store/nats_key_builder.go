// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

// Entity key prefixes
const (
	KeyPrefixMeeting    = "meeting"
	KeyPrefixTranscript = "transcript"
	KeyPrefixUser       = "user"
)

// Lookup index prefixes. Lookup keys hold the uid of the entity they point at.
const (
	KeyPrefixLookup            = "lookup"
	LookupExternalID           = "external_id"
	LookupPendingURL           = "pending_url"
	LookupJoinURL              = "join_url"
	LookupExternalTranscriptID = "external_transcript_id"
)

// KeyBuilder builds NATS KV keys. Key parts may contain characters NATS does
// not allow (URLs, emails), so every part is base64 encoded.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with an optional prefix
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{
		prefix: prefix,
	}
}

// EntityKey builds the encoded key for an entity, e.g. meeting/uid-123.
func (kb *KeyBuilder) EntityKey(entityType, uid string) string {
	return kb.encoded(entityType, uid)
}

// LookupKey builds the encoded key for a lookup index,
// e.g. lookup/join_url/https://zoom.example/1.
func (kb *KeyBuilder) LookupKey(lookupType, value string) string {
	return kb.encoded(KeyPrefixLookup, lookupType, value)
}

// DecodedPrefix returns the decoded form of an entity prefix, for matching
// against keys returned by DecodeKey.
func (kb *KeyBuilder) DecodedPrefix(entityType string) string {
	if kb.prefix == "" {
		return "/" + entityType + "/"
	}
	return "/" + kb.prefix + "/" + entityType + "/"
}

func (kb *KeyBuilder) encoded(parts ...string) string {
	if kb.prefix != "" {
		parts = append([]string{kb.prefix}, parts...)
	}
	key, err := kb.EncodeParts(parts...)
	if err != nil {
		slog.Error("error encoding key", logging.ErrKey, err, "parts", parts)
		return strings.Join(parts, ".")
	}
	return key
}

// EncodeParts base64 encodes each part and joins them with the NATS token
// separator. Parts are encoded whole, so values containing '/' survive.
// Encoding follows https://github.com/ripienaar/encodedkv
func (kb *KeyBuilder) EncodeParts(parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", nats.ErrInvalidKey
	}

	res := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return "", fmt.Errorf("%w: empty key part", nats.ErrInvalidKey)
		}
		res = append(res, base64.URLEncoding.EncodeToString([]byte(part)))
	}

	return strings.Join(res, "."), nil
}

// DecodeKey reverses EncodeParts, returning the parts joined as a path with a
// leading slash.
func (kb *KeyBuilder) DecodeKey(key string) (string, error) {
	if key == "" {
		return "", nats.ErrInvalidKey
	}

	res := []string{}
	for _, part := range strings.Split(key, ".") {
		k, err := base64.URLEncoding.DecodeString(part)
		if err != nil {
			return "", err
		}

		res = append(res, string(k))
	}

	return fmt.Sprintf("/%s", strings.Join(res, "/")), nil
}
