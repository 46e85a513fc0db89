// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

const instrumentationName = "github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/service"

const maxBindAttempts = 3

// FirefliesWebhookService drives inbound Fireflies events through
// verification, classification, correlation and transcript persistence.
// Processing never fails the caller: every event ends in a terminal
// WebhookState.
type FirefliesWebhookService struct {
	WebhookValidator  domain.WebhookValidator
	Resolver          *CorrelationResolver
	Provider          domain.TranscriptProvider
	Builder           *TranscriptBuilder
	MeetingRepository domain.MeetingRepository
	MessageBuilder    domain.MessageBuilder
	Config            ServiceConfig

	outcomes metric.Int64Counter
}

// NewFirefliesWebhookService creates a new FirefliesWebhookService.
func NewFirefliesWebhookService(
	webhookValidator domain.WebhookValidator,
	resolver *CorrelationResolver,
	provider domain.TranscriptProvider,
	builder *TranscriptBuilder,
	meetingRepository domain.MeetingRepository,
	messageBuilder domain.MessageBuilder,
	config ServiceConfig,
) *FirefliesWebhookService {
	outcomes, err := otel.Meter(instrumentationName).Int64Counter("fireflies.webhook.outcomes",
		metric.WithDescription("Fireflies webhook events by terminal state"))
	if err != nil {
		outcomes = noop.Int64Counter{}
	}

	return &FirefliesWebhookService{
		WebhookValidator:  webhookValidator,
		Resolver:          resolver,
		Provider:          provider,
		Builder:           builder,
		MeetingRepository: meetingRepository,
		MessageBuilder:    messageBuilder,
		Config:            config,
		outcomes:          outcomes,
	}
}

// ServiceReady checks if the service is ready to process webhooks
func (s *FirefliesWebhookService) ServiceReady() bool {
	return s.WebhookValidator != nil &&
		s.Resolver != nil && s.Resolver.ServiceReady() &&
		s.Provider != nil &&
		s.Builder != nil && s.Builder.ServiceReady() &&
		s.MeetingRepository != nil &&
		s.MessageBuilder != nil
}

// SignatureConfigured reports whether webhook signatures can be verified.
func (s *FirefliesWebhookService) SignatureConfigured() bool {
	return s.WebhookValidator != nil && s.WebhookValidator.Configured()
}

// HandleWebhook processes one raw webhook body and reports the state it
// finished in.
func (s *FirefliesWebhookService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (result models.WebhookResult) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "fireflies.webhook",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic while processing webhook",
				"panic", fmt.Sprint(r), logging.PriorityCritical())
			result.State = models.WebhookStateDeferred
			result.Reason = "internal error"
		}
		result = settle(ctx, result)

		span.SetAttributes(
			attribute.String("webhook.state", string(result.State)),
			attribute.String("webhook.event_type", result.EventType),
		)
		if s.outcomes != nil {
			s.outcomes.Add(ctx, 1, metric.WithAttributes(
				attribute.String("state", string(result.State)),
			))
		}
		slog.InfoContext(ctx, "webhook processed",
			"state", result.State,
			"reason", result.Reason,
			"event_type", result.EventType,
			"external_id", result.ExternalID,
			"meeting_uid", result.MeetingUID,
			"transcript_uid", result.TranscriptUID,
		)
	}()

	return s.process(ctx, rawBody, signature)
}

// settle defers a result that did not reach a terminal state.
func settle(ctx context.Context, result models.WebhookResult) models.WebhookResult {
	if result.State.Terminal() {
		return result
	}
	slog.ErrorContext(ctx, "webhook processing stopped in a non-terminal state", "state", result.State)
	return finished(result, models.WebhookStateDeferred, fmt.Sprintf("stopped in state %s", result.State))
}

func finished(result models.WebhookResult, state models.WebhookState, reason string) models.WebhookResult {
	result.State = state
	result.Reason = reason
	return result
}

func (s *FirefliesWebhookService) process(ctx context.Context, rawBody []byte, signature string) models.WebhookResult {
	result := models.WebhookResult{State: models.WebhookStateReceived}

	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "webhook service not initialized", logging.PriorityCritical())
		return finished(result, models.WebhookStateDeferred, "service not initialized")
	}

	if reason, ok := s.verify(ctx, rawBody, signature); !ok {
		return finished(result, models.WebhookStateRejected, reason)
	}
	result.State = models.WebhookStateVerified

	event, err := models.ParseWebhookEvent(rawBody)
	if err != nil {
		slog.WarnContext(ctx, "ignoring malformed webhook payload", logging.ErrKey, err)
		return finished(result, models.WebhookStateIgnored, "malformed payload")
	}
	result.EventType = event.RawType

	switch event.Kind {
	case models.WebhookEventTranscriptionCompleted:
	case models.WebhookEventMeetingStarted, models.WebhookEventMeetingEnded:
		return finished(result, models.WebhookStateIgnored, "event not processed")
	default:
		return finished(result, models.WebhookStateIgnored, "unknown event type")
	}

	if event.MeetingID == "" {
		slog.WarnContext(ctx, "transcription webhook without meeting id")
		return finished(result, models.WebhookStateIgnored, "missing meeting id")
	}
	result.ExternalID = event.MeetingID
	result.State = models.WebhookStateClassified
	ctx = logging.AppendCtx(ctx, slog.String("external_id", event.MeetingID))

	meeting, transcript, err := s.resolve(ctx, event)
	if err != nil {
		return finished(result, models.WebhookStateDeferred, deferReason(err))
	}
	if meeting == nil {
		slog.WarnContext(ctx, "no local meeting matches webhook, deferring")
		return finished(result, models.WebhookStateDeferred, "no matching meeting")
	}
	result.MeetingUID = meeting.UID
	result.State = models.WebhookStateResolved
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uid", meeting.UID))

	existing, err := s.Builder.Existing(ctx, meeting.UID)
	if err != nil {
		return finished(result, models.WebhookStateDeferred, deferReason(err))
	}
	if existing == nil {
		// A fallback match can land on a different meeting than the one the
		// transcript was first stored under; one provider transcript is
		// stored once.
		stored, err := s.Builder.ExistingForExternalID(ctx, event.MeetingID)
		if err != nil {
			return finished(result, models.WebhookStateDeferred, deferReason(err))
		}
		if stored != nil && stored.MeetingUID != meeting.UID {
			slog.WarnContext(ctx, "transcript already stored for another meeting, skipping",
				"stored_meeting_uid", stored.MeetingUID,
				"transcript_uid", stored.UID,
			)
			result.MeetingUID = stored.MeetingUID
			result.TranscriptUID = stored.UID
			return finished(result, models.WebhookStatePersisted, "already processed")
		}
	}

	if existing == nil && transcript == nil {
		transcript, err = s.Provider.FetchTranscript(ctx, event.MeetingID)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch transcript", logging.ErrKey, err)
			return finished(result, models.WebhookStateDeferred, deferReason(err))
		}
		if transcript == nil {
			return finished(result, models.WebhookStateDeferred, "transcript not ready")
		}
	}
	result.State = models.WebhookStateTranscriptFetched

	if err := s.bindExternalID(ctx, meeting, event.MeetingID); err != nil {
		return finished(result, models.WebhookStateDeferred, deferReason(err))
	}

	saved, err := s.Builder.Build(ctx, meeting, transcript)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build transcript", logging.ErrKey, err)
		return finished(result, models.WebhookStateDeferred, deferReason(err))
	}
	result.TranscriptUID = saved.UID

	if existing != nil {
		return finished(result, models.WebhookStatePersisted, "already processed")
	}
	return finished(result, models.WebhookStatePersisted, "")
}

// verify reports whether the body may be processed and, when not, why.
func (s *FirefliesWebhookService) verify(ctx context.Context, rawBody []byte, signature string) (string, bool) {
	if !s.WebhookValidator.Configured() {
		slog.WarnContext(ctx, "webhook secret not configured, accepting unverified webhook (reduced security)")
		return "", true
	}

	if strings.TrimSpace(signature) == "" {
		if s.Config.RequireWebhookSignature {
			slog.WarnContext(ctx, "rejecting unsigned webhook")
			return "missing signature", false
		}
		slog.WarnContext(ctx, "accepting unsigned webhook although a secret is configured")
		return "", true
	}

	if err := s.WebhookValidator.Validate(rawBody, signature); err != nil {
		slog.WarnContext(ctx, "rejecting webhook with invalid signature", logging.ErrKey, err)
		return "invalid signature", false
	}
	return "", true
}

// resolve finds the meeting an event belongs to. When the event alone does
// not match, the transcript is fetched for its meeting URL and title; that
// transcript is returned so it is not fetched twice.
func (s *FirefliesWebhookService) resolve(ctx context.Context, event models.WebhookEvent) (*models.Meeting, *models.ProviderTranscript, error) {
	meeting, err := s.Resolver.Resolve(ctx, event.MeetingID, event.MeetingURL)
	if err != nil || meeting != nil {
		return meeting, nil, err
	}

	transcript, err := s.Provider.FetchTranscript(ctx, event.MeetingID)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch transcript for correlation", logging.ErrKey, err)
		return nil, nil, err
	}
	if transcript == nil {
		return nil, nil, domain.ErrTranscriptNotReady
	}

	if transcript.MeetingURL != "" && transcript.MeetingURL != event.MeetingURL {
		meeting, err = s.Resolver.Resolve(ctx, "", transcript.MeetingURL)
		if err != nil || meeting != nil {
			return meeting, transcript, err
		}
	}

	title := strings.TrimSpace(transcript.Title)
	if title == "" {
		title = event.Title
	}
	meeting, err = s.Resolver.ResolveByTitle(ctx, title)
	return meeting, transcript, err
}

// bindExternalID records externalID on the meeting, clearing its pending
// URL. Replacing a different real id is allowed but logged.
func (s *FirefliesWebhookService) bindExternalID(ctx context.Context, meeting *models.Meeting, externalID string) error {
	if meeting.ExternalID == externalID {
		return nil
	}

	for attempt := 1; ; attempt++ {
		current, revision, err := s.MeetingRepository.GetWithRevision(ctx, meeting.UID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load meeting for external id binding", logging.ErrKey, err)
			return err
		}
		if current.ExternalID == externalID {
			*meeting = *current
			return nil
		}

		previous := current.BindExternalID(externalID, s.Config.now())
		if previous != "" {
			slog.WarnContext(ctx, "anomalous external id change on meeting",
				"previous_external_id", previous)
		}

		err = s.MeetingRepository.Update(ctx, current, revision)
		if err == nil {
			*meeting = *current
			break
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict || attempt >= maxBindAttempts {
			slog.ErrorContext(ctx, "failed to bind external id", logging.ErrKey, err, "attempt", attempt)
			return err
		}
	}

	if err := s.MessageBuilder.SendIndexMeeting(ctx, models.ActionUpdated, *meeting); err != nil {
		slog.WarnContext(ctx, "failed to publish meeting index message", logging.ErrKey, err)
	}
	slog.InfoContext(ctx, "external id bound to meeting")
	return nil
}

func deferReason(err error) string {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeNotReady:
		return "transcript not ready"
	case domain.ErrorTypeRateLimited:
		return "provider rate limited"
	case domain.ErrorTypeUpstream:
		return "provider request failed"
	case domain.ErrorTypeConfiguration:
		return "provider not configured"
	default:
		return "internal error"
	}
}
