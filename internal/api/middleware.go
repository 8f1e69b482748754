package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"streamreview/internal/access"
)

// ContextKey is the type used for request context keys.
type ContextKey string

// CallerKey holds the authenticated access.Caller in the request context.
const CallerKey ContextKey = "caller"

// RequireAuth validates the Bearer token from the Authorization header and
// injects the caller's identity into the request context. Requests without
// valid credentials are rejected with 401 before the handler runs.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.logger.WarnContext(r.Context(), "Authorization header missing")
			h.respondError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			h.logger.WarnContext(r.Context(), "Invalid Authorization header format")
			h.respondError(w, r, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		claims, err := h.tokenManager.Validate(parts[1])
		if err != nil {
			h.logger.WarnContext(r.Context(), "Invalid or expired token", slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		caller := access.Caller{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
		ctx := context.WithValue(r.Context(), CallerKey, caller)

		h.logger.DebugContext(ctx, "Token validated successfully",
			slog.String("userID", caller.ID), slog.String("role", caller.Role))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext extracts the authenticated caller. A zero Caller is
// returned for unauthenticated requests.
func CallerFromContext(ctx context.Context) access.Caller {
	caller, _ := ctx.Value(CallerKey).(access.Caller)
	return caller
}
