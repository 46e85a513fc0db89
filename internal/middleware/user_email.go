// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/internal/logging"
	"github.com/linuxfoundation/lfx-v2-fireflies-proxy/pkg/constants"
)

// UserEmailMiddleware stores the normalized X-User-Email header as the
// request principal. Requests without the header pass through; handlers that
// need a caller reject them.
func UserEmailMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := models.NormalizeEmail(r.Header.Get(constants.UserEmailHeader))
			if email != "" {
				ctx := context.WithValue(r.Context(), constants.PrincipalContextID, email)
				ctx = logging.AppendCtx(ctx, slog.String("principal", email))
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserEmailFromContext returns the principal stored by UserEmailMiddleware.
func UserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(constants.PrincipalContextID).(string)
	return email, ok && email != ""
}
