// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

// systemAuthorization is sent on indexer messages produced without a user
// request, such as webhook processing.
const systemAuthorization = "Bearer " + constants.ServiceName

// ErrNotConnected is returned when publishing while the NATS connection is down.
var ErrNotConnected = errors.New("NATS connection is not established")

// INatsConn is the part of a NATS connection the message builder needs.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// MessageBuilder is the builder for the message and sends it to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

// Ensure that MessageBuilder implements domain.MessageBuilder
var _ domain.MessageBuilder = (*MessageBuilder)(nil)

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// publish sends the message to the NATS server.
func (m *MessageBuilder) publish(ctx context.Context, subject string, data []byte) error {
	if !m.NatsConn.IsConnected() {
		slog.WarnContext(ctx, "dropping message, NATS is not connected", "subject", subject)
		return ErrNotConnected
	}
	if err := m.NatsConn.Publish(subject, data); err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// sendIndexerMessage wraps data in the indexer envelope and publishes it.
func (m *MessageBuilder) sendIndexerMessage(ctx context.Context, subject string, action models.MessageAction, data []byte, tags []string) error {
	headers := map[string]string{
		constants.AuthorizationHeader: systemAuthorization,
	}
	if principal, ok := ctx.Value(constants.PrincipalContextID).(string); ok && principal != "" {
		headers[constants.XOnBehalfOfHeader] = principal
	}

	var payload any
	switch action {
	case models.ActionCreated, models.ActionUpdated:
		var jsonData any
		if err := json.Unmarshal(data, &jsonData); err != nil {
			slog.ErrorContext(ctx, "error unmarshalling data into JSON", logging.ErrKey, err, "subject", subject)
			return err
		}

		// The indexer expects a map[string]any body.
		config := mapstructure.DecoderConfig{
			TagName: "json",
			Result:  &payload,
		}
		decoder, err := mapstructure.NewDecoder(&config)
		if err != nil {
			slog.ErrorContext(ctx, "error creating decoder", logging.ErrKey, err, "subject", subject)
			return err
		}
		if err := decoder.Decode(jsonData); err != nil {
			slog.ErrorContext(ctx, "error decoding data", logging.ErrKey, err, "subject", subject)
			return err
		}
	case models.ActionDeleted:
		// The data is the UID being deleted.
		payload = string(data)
	}

	message := models.IndexerMessage{
		Action:  action,
		Headers: headers,
		Data:    payload,
		Tags:    tags,
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}

	slog.DebugContext(ctx, "constructed indexer message",
		"subject", subject,
		"action", action,
		"tags_count", len(tags),
	)

	return m.publish(ctx, subject, messageBytes)
}

// sendEvent publishes a JSON encoded event.
func (m *MessageBuilder) sendEvent(ctx context.Context, subject string, event any) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling event into JSON", logging.ErrKey, err, "subject", subject)
		return err
	}
	return m.publish(ctx, subject, eventBytes)
}

// SendIndexMeeting sends the message to the NATS server for the meeting indexing.
func (m *MessageBuilder) SendIndexMeeting(ctx context.Context, action models.MessageAction, data models.Meeting) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err)
		return err
	}
	return m.sendIndexerMessage(ctx, models.IndexMeetingSubject, action, dataBytes, data.Tags())
}

// SendIndexTranscript sends the message to the NATS server for the transcript indexing.
func (m *MessageBuilder) SendIndexTranscript(ctx context.Context, action models.MessageAction, data models.Transcript) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err)
		return err
	}
	return m.sendIndexerMessage(ctx, models.IndexTranscriptSubject, action, dataBytes, data.Tags())
}

// SendTranscriptCreated announces a newly persisted transcript.
func (m *MessageBuilder) SendTranscriptCreated(ctx context.Context, event models.TranscriptCreatedEvent) error {
	return m.sendEvent(ctx, models.TranscriptCreatedSubject, event)
}

// SendMeetingCompleted announces a meeting that reached the completed status.
func (m *MessageBuilder) SendMeetingCompleted(ctx context.Context, event models.MeetingCompletedEvent) error {
	return m.sendEvent(ctx, models.MeetingCompletedSubject, event)
}
