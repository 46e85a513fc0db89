// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
)

// NatsUserRepository is the NATS KV store repository for users, keyed by
// normalized email.
type NatsUserRepository struct {
	*NatsBaseRepository[models.User]
	keyBuilder *KeyBuilder
}

// NewNatsUserRepository creates a new NATS KV store repository for users.
func NewNatsUserRepository(kvStore INatsKeyValue) *NatsUserRepository {
	return &NatsUserRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.User](kvStore, "user"),
		keyBuilder:         NewKeyBuilder(""),
	}
}

// Create stores a new user; a Conflict domain error means the email is taken.
func (r *NatsUserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if user.Email == "" {
		return domain.NewValidationError("user email is required")
	}
	if user.UID == "" {
		user.UID = uuid.New().String()
	}

	key := r.keyBuilder.EntityKey(KeyPrefixUser, user.Email)
	return r.NatsBaseRepository.CreateIfAbsent(ctx, key, user)
}

// GetByEmail retrieves a user by email.
func (r *NatsUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return nil, domain.NewValidationError("user email is required")
	}

	key := r.keyBuilder.EntityKey(KeyPrefixUser, normalized)
	return r.NatsBaseRepository.Get(ctx, key)
}
