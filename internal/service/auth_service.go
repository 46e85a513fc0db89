// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

// AuthService manages the email identities callers present in X-User-Email.
type AuthService struct {
	UserRepository domain.UserRepository
	Provider       domain.TranscriptProvider
	Config         ServiceConfig
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepository domain.UserRepository, provider domain.TranscriptProvider, config ServiceConfig) *AuthService {
	return &AuthService{
		UserRepository: userRepository,
		Provider:       provider,
		Config:         config,
	}
}

// ServiceReady checks if the service is ready to serve requests
func (s *AuthService) ServiceReady() bool {
	return s.UserRepository != nil && s.Provider != nil
}

// Register returns the user for email, creating it on first use.
func (s *AuthService) Register(ctx context.Context, email string) (*models.User, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "auth service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("auth service not initialized")
	}

	email = models.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("a valid email is required")
	}

	user, err := s.UserRepository.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
		slog.ErrorContext(ctx, "failed to look up user", logging.ErrKey, err)
		return nil, err
	}

	user = &models.User{Email: email, CreatedAt: s.Config.now()}
	if err := s.UserRepository.Create(ctx, user); err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeConflict {
			// registered concurrently
			return s.UserRepository.GetByEmail(ctx, email)
		}
		slog.ErrorContext(ctx, "failed to register user", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "registered new user", "email", email)
	return user, nil
}

// Me returns the registered user for email.
func (s *AuthService) Me(ctx context.Context, email string) (*models.User, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "auth service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("auth service not initialized")
	}
	return requireUser(ctx, s.UserRepository, email)
}

// VerifyProvider probes the provider account behind the configured API key on
// behalf of a registered user. A rate limit is reported as such; any other
// failure means the provider is unusable.
func (s *AuthService) VerifyProvider(ctx context.Context, email string) (*models.ProviderUser, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "auth service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("auth service not initialized")
	}

	if _, err := requireUser(ctx, s.UserRepository, email); err != nil {
		return nil, err
	}

	account, err := s.Provider.ProbeIdentity(ctx)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeRateLimited {
			return nil, err
		}
		slog.ErrorContext(ctx, "provider API key verification failed", logging.ErrKey, err)
		return nil, domain.NewUnavailableError("provider API key is invalid or not configured: " + err.Error())
	}
	return account, nil
}
