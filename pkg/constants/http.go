// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// AuthorizationHeader is the header name for the authorization
	AuthorizationHeader string = "authorization"

	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// UserEmailHeader identifies the calling user
	UserEmailHeader string = "X-User-Email"

	// XOnBehalfOfHeader is the header name for the on behalf of principal
	XOnBehalfOfHeader string = "x-on-behalf-of"

	// FirefliesSignatureHeader carries the webhook body signature
	FirefliesSignatureHeader string = "X-Fireflies-Signature"

	// HubSignatureHeader is the alternate webhook signature header
	HubSignatureHeader string = "X-Hub-Signature"

	// RetryAfterHeader tells clients when a rate limited call may be repeated
	RetryAfterHeader string = "Retry-After"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"

// contextPrincipal is the type for the principal context key
type contextPrincipal string

// PrincipalContextID is the context ID for the principal
const PrincipalContextID contextPrincipal = "x-on-behalf-of"

// Webhook endpoint paths
const (
	// FirefliesWebhookPath receives Fireflies events
	FirefliesWebhookPath = "/webhooks/fireflies"

	// FirefliesWebhookHealthPath reports whether the webhook receiver is up
	FirefliesWebhookHealthPath = "/webhooks/fireflies/health"
)
