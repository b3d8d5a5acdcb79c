// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pollspree/auth"
)

type contextKey int

const userIDKey contextKey = iota

// TokenVerifier turns a bearer token into a user id
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireUser rejects requests without a valid bearer token with 401.
// The verified user id is available through UserID.
func RequireUser(v TokenVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := verifyRequest(v, r)
		if err != nil {
			slog.Warn("rejected unauthenticated request", "path", r.URL.Path, "error", err)
			ErrorResponse(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next(w, r.WithContext(WithUserID(r.Context(), userID)))
	}
}

// OptionalUser attaches the user id when a valid token is present and
// otherwise serves the request anonymously.
func OptionalUser(v TokenVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, err := verifyRequest(v, r); err == nil {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next(w, r)
	}
}

// WithUserID stores a verified user id on the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the verified user id, if any
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func verifyRequest(v TokenVerifier, r *http.Request) (string, error) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", err
	}
	return v.Verify(token)
}
