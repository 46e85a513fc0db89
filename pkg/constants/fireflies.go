// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// ServiceName is the name the proxy reports to logs and telemetry.
const ServiceName = "lfx-v2-fireflies-proxy"

// Transcript listing paging
const (
	// DefaultTranscriptPageSize is used when the caller does not pass a limit
	DefaultTranscriptPageSize = 10

	// MaxTranscriptPageSize is the largest page Fireflies serves
	MaxTranscriptPageSize = 50
)
