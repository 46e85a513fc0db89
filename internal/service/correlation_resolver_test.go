// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
)

func TestCorrelationResolver_Resolve_Order(t *testing.T) {
	ctx := context.Background()
	url := "https://zoom.example/1"

	tests := []struct {
		name     string
		setup    func(f *storeFixture)
		id       string
		url      string
		expected string
	}{
		{
			name: "external id wins over url matches",
			setup: func(f *storeFixture) {
				f.createMeeting(t, &models.Meeting{UID: "by-id", ExternalID: "ext-42"})
				f.createMeeting(t, &models.Meeting{UID: "by-pending", PendingURL: url})
			},
			id: "ext-42", url: url, expected: "by-id",
		},
		{
			name: "pending url before join url",
			setup: func(f *storeFixture) {
				f.createMeeting(t, &models.Meeting{UID: "by-join", JoinURL: url})
				f.createMeeting(t, &models.Meeting{UID: "by-pending", PendingURL: url})
			},
			id: "ext-42", url: url, expected: "by-pending",
		},
		{
			name: "legacy url stored as external id",
			setup: func(f *storeFixture) {
				f.createMeeting(t, &models.Meeting{UID: "legacy", ExternalID: url})
				f.createMeeting(t, &models.Meeting{UID: "by-join", JoinURL: url})
			},
			id: "ext-42", url: url, expected: "legacy",
		},
		{
			name: "join url last",
			setup: func(f *storeFixture) {
				f.createMeeting(t, &models.Meeting{UID: "by-join", JoinURL: url})
			},
			id: "ext-42", url: url, expected: "by-join",
		},
		{
			name:  "miss",
			setup: func(f *storeFixture) { f.createMeeting(t, &models.Meeting{UID: "other", JoinURL: "https://zoom.example/2"}) },
			id:    "ext-42", url: url,
		},
		{
			name:  "blank identifiers",
			setup: func(f *storeFixture) { f.createMeeting(t, &models.Meeting{UID: "other", JoinURL: url}) },
			id:    " ", url: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreFixture()
			tt.setup(f)

			meeting, err := NewCorrelationResolver(f.meetings).Resolve(ctx, tt.id, tt.url)
			require.NoError(t, err)
			if tt.expected == "" {
				assert.Nil(t, meeting)
				return
			}
			require.NotNil(t, meeting)
			assert.Equal(t, tt.expected, meeting.UID)
		})
	}
}

func TestCorrelationResolver_Resolve_SkipsBlankStrategies(t *testing.T) {
	repo := &mocks.MockMeetingRepository{}
	repo.On("FindByExternalID", mock.Anything, "ext-42").
		Return(nil, domain.NewNotFoundError("meeting not found"))

	meeting, err := NewCorrelationResolver(repo).Resolve(context.Background(), "ext-42", "")

	require.NoError(t, err)
	assert.Nil(t, meeting)
	repo.AssertNotCalled(t, "FindByPendingURL", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "FindByJoinURL", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestCorrelationResolver_Resolve_StoreError(t *testing.T) {
	storeErr := domain.NewInternalError("kv down")
	repo := &mocks.MockMeetingRepository{}
	repo.On("FindByExternalID", mock.Anything, "ext-42").Return(nil, storeErr)

	meeting, err := NewCorrelationResolver(repo).Resolve(context.Background(), "ext-42", "https://zoom.example/1")

	assert.Nil(t, meeting)
	assert.ErrorIs(t, err, storeErr)
	repo.AssertNotCalled(t, "FindByPendingURL", mock.Anything, mock.Anything)
}

func TestCorrelationResolver_NotReady(t *testing.T) {
	_, err := (&CorrelationResolver{}).Resolve(context.Background(), "ext-42", "")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestCorrelationResolver_ResolveByTitle(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("case-insensitive exact match", func(t *testing.T) {
		f := newStoreFixture()
		f.createMeeting(t, &models.Meeting{UID: "m-1", Title: "  Weekly Sync ", CreatedAt: base})
		f.createMeeting(t, &models.Meeting{UID: "m-2", Title: "Weekly Sync Extended", CreatedAt: base})

		meeting, err := NewCorrelationResolver(f.meetings).ResolveByTitle(ctx, "weekly sync")
		require.NoError(t, err)
		require.NotNil(t, meeting)
		assert.Equal(t, "m-1", meeting.UID)
	})

	t.Run("ambiguous match picks earliest created then uid", func(t *testing.T) {
		f := newStoreFixture()
		f.createMeeting(t, &models.Meeting{UID: "m-late", Title: "Standup", CreatedAt: base.Add(time.Hour)})
		f.createMeeting(t, &models.Meeting{UID: "m-b", Title: "Standup", CreatedAt: base})
		f.createMeeting(t, &models.Meeting{UID: "m-a", Title: "STANDUP", CreatedAt: base})

		meeting, err := NewCorrelationResolver(f.meetings).ResolveByTitle(ctx, "Standup")
		require.NoError(t, err)
		require.NotNil(t, meeting)
		assert.Equal(t, "m-a", meeting.UID)
	})

	t.Run("no match", func(t *testing.T) {
		f := newStoreFixture()
		f.createMeeting(t, &models.Meeting{UID: "m-1", Title: "Retro"})

		meeting, err := NewCorrelationResolver(f.meetings).ResolveByTitle(ctx, "Standup")
		require.NoError(t, err)
		assert.Nil(t, meeting)
	})

	t.Run("blank title does not list", func(t *testing.T) {
		repo := &mocks.MockMeetingRepository{}
		meeting, err := NewCorrelationResolver(repo).ResolveByTitle(ctx, "  ")
		require.NoError(t, err)
		assert.Nil(t, meeting)
		repo.AssertNotCalled(t, "ListAll", mock.Anything)
	})

	t.Run("list failure", func(t *testing.T) {
		repo := &mocks.MockMeetingRepository{}
		listErr := errors.New("list failed")
		repo.On("ListAll", mock.Anything).Return(nil, listErr)

		_, err := NewCorrelationResolver(repo).ResolveByTitle(ctx, "Standup")
		assert.ErrorIs(t, err, listErr)
	})
}
