// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

// NatsMeetingRepository is the NATS KV store repository for meetings.
//
// Besides the meeting record itself the bucket holds one lookup key per
// correlation field (external id, pending URL, join URL) pointing at the
// meeting uid. Lookups re-check the field on the loaded record, so a stale
// lookup key never produces a wrong match.
type NatsMeetingRepository struct {
	*NatsBaseRepository[models.Meeting]
	keyBuilder *KeyBuilder
}

// NewNatsMeetingRepository creates a new NATS KV store repository for meetings.
func NewNatsMeetingRepository(kvStore INatsKeyValue) *NatsMeetingRepository {
	return &NatsMeetingRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.Meeting](kvStore, "meeting"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// meetingLookups returns the lookup keys a meeting should be reachable by.
func (r *NatsMeetingRepository) meetingLookups(meeting *models.Meeting) map[string]string {
	lookups := make(map[string]string, 3)
	if meeting.ExternalID != "" {
		lookups[r.keyBuilder.LookupKey(LookupExternalID, meeting.ExternalID)] = meeting.UID
	}
	if meeting.PendingURL != "" {
		lookups[r.keyBuilder.LookupKey(LookupPendingURL, meeting.PendingURL)] = meeting.UID
	}
	if meeting.JoinURL != "" {
		lookups[r.keyBuilder.LookupKey(LookupJoinURL, meeting.JoinURL)] = meeting.UID
	}
	return lookups
}

// Create stores a new meeting and its lookup keys.
func (r *NatsMeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.UID == "" {
		meeting.UID = uuid.New().String()
	}

	key := r.keyBuilder.EntityKey(KeyPrefixMeeting, meeting.UID)
	if err := r.NatsBaseRepository.CreateIfAbsent(ctx, key, meeting); err != nil {
		return err
	}

	r.syncLookups(ctx, nil, meeting)
	return nil
}

// Get retrieves a meeting by UID
func (r *NatsMeetingRepository) Get(ctx context.Context, meetingUID string) (*models.Meeting, error) {
	key := r.keyBuilder.EntityKey(KeyPrefixMeeting, meetingUID)
	return r.NatsBaseRepository.Get(ctx, key)
}

// GetWithRevision retrieves a meeting with its revision by UID
func (r *NatsMeetingRepository) GetWithRevision(ctx context.Context, meetingUID string) (*models.Meeting, uint64, error) {
	key := r.keyBuilder.EntityKey(KeyPrefixMeeting, meetingUID)
	return r.NatsBaseRepository.GetWithRevision(ctx, key)
}

// Update writes meeting if revision is still current and moves its lookup
// keys to the new field values.
func (r *NatsMeetingRepository) Update(ctx context.Context, meeting *models.Meeting, revision uint64) error {
	key := r.keyBuilder.EntityKey(KeyPrefixMeeting, meeting.UID)

	previous, err := r.NatsBaseRepository.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := r.NatsBaseRepository.Update(ctx, key, meeting, revision); err != nil {
		return err
	}

	r.syncLookups(ctx, previous, meeting)
	return nil
}

// syncLookups removes the lookup keys only previous had and writes the ones
// current needs. Failures are logged; lookups re-validate on read.
func (r *NatsMeetingRepository) syncLookups(ctx context.Context, previous, current *models.Meeting) {
	want := r.meetingLookups(current)

	if previous != nil {
		for indexKey := range r.meetingLookups(previous) {
			if _, keep := want[indexKey]; keep {
				continue
			}
			if err := r.DeleteIndex(ctx, indexKey); err != nil {
				slog.WarnContext(ctx, "failed to delete meeting lookup",
					logging.ErrKey, err, "meeting_uid", current.UID)
			}
		}
	}

	for indexKey, uid := range want {
		if err := r.PutIndex(ctx, indexKey, uid); err != nil {
			slog.WarnContext(ctx, "failed to write meeting lookup",
				logging.ErrKey, err, "meeting_uid", current.UID)
		}
	}
}

// findBy resolves a lookup key and checks the loaded meeting still matches.
func (r *NatsMeetingRepository) findBy(ctx context.Context, lookupType, value string, matches func(*models.Meeting) bool) (*models.Meeting, error) {
	if value == "" {
		return nil, domain.NewValidationError(fmt.Sprintf("%s is required", lookupType))
	}

	uid, err := r.GetIndex(ctx, r.keyBuilder.LookupKey(lookupType, value))
	if err != nil {
		return nil, err
	}

	meeting, err := r.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !matches(meeting) {
		slog.DebugContext(ctx, "stale meeting lookup",
			"lookup", lookupType, "meeting_uid", uid)
		return nil, domain.NewNotFoundError(fmt.Sprintf("meeting with %s '%s' not found", lookupType, value))
	}
	return meeting, nil
}

// FindByExternalID returns the meeting whose ExternalID equals externalID.
func (r *NatsMeetingRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Meeting, error) {
	return r.findBy(ctx, LookupExternalID, externalID, func(m *models.Meeting) bool {
		return m.ExternalID == externalID
	})
}

// FindByPendingURL returns the meeting waiting for a bot invite on url.
func (r *NatsMeetingRepository) FindByPendingURL(ctx context.Context, url string) (*models.Meeting, error) {
	return r.findBy(ctx, LookupPendingURL, url, func(m *models.Meeting) bool {
		return m.PendingURL == url
	})
}

// FindByJoinURL returns the meeting whose JoinURL equals url.
func (r *NatsMeetingRepository) FindByJoinURL(ctx context.Context, url string) (*models.Meeting, error) {
	return r.findBy(ctx, LookupJoinURL, url, func(m *models.Meeting) bool {
		return m.JoinURL == url
	})
}

// ListAll retrieves all meetings ordered by creation time.
func (r *NatsMeetingRepository) ListAll(ctx context.Context) ([]*models.Meeting, error) {
	meetings, err := r.ListEntitiesWithPrefix(ctx, r.keyBuilder.DecodedPrefix(KeyPrefixMeeting))
	if err != nil {
		return nil, err
	}

	sort.Slice(meetings, func(i, j int) bool {
		if !meetings[i].CreatedAt.Equal(meetings[j].CreatedAt) {
			return meetings[i].CreatedAt.Before(meetings[j].CreatedAt)
		}
		return meetings[i].UID < meetings[j].UID
	})
	return meetings, nil
}

// ListByOwner retrieves the meetings owned by ownerEmail.
func (r *NatsMeetingRepository) ListByOwner(ctx context.Context, ownerEmail string) ([]*models.Meeting, error) {
	allMeetings, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var owned []*models.Meeting
	for _, meeting := range allMeetings {
		if meeting.OwnedBy(ownerEmail) {
			owned = append(owned, meeting)
		}
	}
	return owned, nil
}
