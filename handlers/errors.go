// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/models"
)

// Sentinel errors carry the message shown to clients.
var (
	ErrPollNotFound     = errors.New("Poll not found")
	ErrOptionNotFound   = errors.New("Poll option not found")
	ErrCommentNotFound  = errors.New("Comment not found")
	ErrUserNotFound     = errors.New("User not found")
	ErrNotAuthor        = errors.New("Only the poll author can delete this poll")
	ErrNotCommentAuthor = errors.New("Only the comment author can delete this comment")
	ErrDuplicatePoll    = errors.New("A poll with this exact question and options already exists.")
	ErrUsernameTaken    = errors.New("Username already taken")
	ErrConflict         = errors.New("Request conflicted with a concurrent update, please retry")
	ErrIdentityProvider = errors.New("Failed to delete user from identity provider")
)

// ValidationError is a rejected input. Message is shown to the client as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// statusFor maps a domain error to its HTTP status
func statusFor(err error) int {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrPollNotFound), errors.Is(err, ErrOptionNotFound),
		errors.Is(err, ErrCommentNotFound), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotAuthor), errors.Is(err, ErrNotCommentAuthor):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicatePoll), errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrIdentityProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// messageFor returns the client-facing text for err. Unexpected errors are
// not echoed.
func messageFor(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	for _, sentinel := range []error{
		ErrPollNotFound, ErrOptionNotFound, ErrCommentNotFound, ErrUserNotFound,
		ErrNotAuthor, ErrNotCommentAuthor, ErrDuplicatePoll, ErrUsernameTaken,
		ErrConflict, ErrIdentityProvider,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "Database error"
}

// writeError writes a standard error response for err
func writeError(w http.ResponseWriter, err error, logMsg string, args ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(logMsg, append(args, "error", err)...)
	}
	middleware.ErrorResponse(w, status, messageFor(err))
}

// writeMutationError writes {success:false, error} for a failed write
func writeMutationError(w http.ResponseWriter, err error, logMsg string, args ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(logMsg, append(args, "error", err)...)
	}
	middleware.JSONResponse(w, status, models.MutationResponse{
		Success: false,
		Error:   messageFor(err),
	})
}
