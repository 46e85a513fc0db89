// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
)

const (
	userQuery = `query { user { user_id email name minutes_consumed is_admin } }`

	identityCacheKey = "me"
)

// ProbeIdentity returns the profile of the account the API key belongs to.
//
// The result is cached. A rate limited response opens the backoff window;
// while it is open the last known profile is served without calling the API,
// or a *domain.RateLimitedError is returned if none was ever fetched.
func (c *Client) ProbeIdentity(ctx context.Context) (*models.ProviderUser, error) {
	ctx = logging.AppendCtx(ctx, slog.String("fireflies_operation", "probe_identity"))

	if resume, active := c.backoff.Until(c.config.Now()); active {
		if user, ok := c.users.GetStale(identityCacheKey); ok {
			c.recordCacheLookup(ctx, "identity", "stale")
			slog.WarnContext(ctx, "rate limit backoff active, serving cached identity",
				"retry_after", resume.UTC().Format(time.RFC3339))
			return user, nil
		}
		slog.WarnContext(ctx, "rate limit backoff active, no cached identity",
			"retry_after", resume.UTC().Format(time.RFC3339))
		return nil, &domain.RateLimitedError{RetryAfter: resume}
	}

	if user, ok := c.users.Get(identityCacheKey); ok {
		c.recordCacheLookup(ctx, "identity", "hit")
		return user, nil
	}
	c.recordCacheLookup(ctx, "identity", "miss")

	var data struct {
		User *wireUser `json:"user"`
	}
	if err := c.execute(ctx, "probe_identity", userQuery, nil, &data); err != nil {
		var limited *domain.RateLimitedError
		if !errors.As(err, &limited) {
			return nil, err
		}
		c.backoff.Enter(limited.RetryAfter)
		slog.WarnContext(ctx, "entering rate limit backoff",
			"retry_after", limited.RetryAfter.UTC().Format(time.RFC3339))
		if user, ok := c.users.GetStale(identityCacheKey); ok {
			c.recordCacheLookup(ctx, "identity", "stale")
			return user, nil
		}
		return nil, err
	}

	c.backoff.Clear()

	if data.User == nil {
		return nil, &domain.UpstreamError{Status: http.StatusOK, Message: "user profile missing from response"}
	}

	user := data.User.toModel()
	c.users.Set(identityCacheKey, user)

	slog.DebugContext(ctx, "verified Fireflies API key", "fireflies_user_id", user.UserID)
	return user, nil
}
