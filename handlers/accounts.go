// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/models"
)

// IdentityProvider removes accounts at the external identity service
type IdentityProvider interface {
	DeleteUser(ctx context.Context, userID string) error
}

// DeleteAccount erases everything the store holds for userID in one
// transaction: their votes (with counters recomputed), their polls and
// everything under them, their likes, comments and idempotency records, and
// the profile itself.
func DeleteAccount(ctx context.Context, conn *sql.DB, userID string) error {
	return db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		votedPolls, err := collectIDs(ctx, tx, "SELECT DISTINCT poll_id FROM poll_vote WHERE user_id = $1", userID)
		if err != nil {
			return err
		}
		likedPolls, err := collectIDs(ctx, tx, "SELECT DISTINCT poll_id FROM poll_like WHERE user_id = $1", userID)
		if err != nil {
			return err
		}

		for _, stmt := range []string{
			"DELETE FROM poll_vote WHERE user_id = $1",
			"DELETE FROM poll_like WHERE user_id = $1",
			"DELETE FROM comment WHERE user_id = $1",
			"DELETE FROM vote_request WHERE user_id = $1",
		} {
			if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
				return fmt.Errorf("failed to delete user rows: %w", err)
			}
		}

		for _, pollID := range votedPolls {
			if err := recountVotes(ctx, tx, pollID); err != nil {
				return err
			}
		}
		for _, pollID := range likedPolls {
			_, err := tx.ExecContext(ctx, `
				UPDATE poll SET likes = (SELECT COUNT(*) FROM poll_like WHERE poll_id = $1)
				WHERE id = $1
			`, pollID)
			if err != nil {
				return fmt.Errorf("failed to recount likes: %w", err)
			}
		}

		if err := deletePollRows(ctx, tx, "IN (SELECT id FROM poll WHERE author_id = $1)", userID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM app_user WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

// recountVotes rebuilds option and poll counters from the remaining vote rows
func recountVotes(ctx context.Context, tx *sql.Tx, pollID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE poll_option SET votes = (
			SELECT COUNT(*) FROM poll_vote WHERE poll_vote.option_id = poll_option.id
		)
		WHERE poll_id = $1
	`, pollID)
	if err != nil {
		return fmt.Errorf("failed to recount option votes: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE poll SET total_votes = (
			SELECT COALESCE(SUM(votes), 0) FROM poll_option WHERE poll_id = $1
		)
		WHERE id = $1
	`, pollID)
	if err != nil {
		return fmt.Errorf("failed to recount poll votes: %w", err)
	}
	return nil
}

func collectIDs(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type AccountHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	provider IdentityProvider
}

func NewAccountHandler(db *sql.DB, cfg cliparse.Config, provider IdentityProvider) *AccountHandler {
	return &AccountHandler{db: db, cfg: cfg, provider: provider}
}

// DeleteAccount handles DELETE /users/me. The provider account is removed
// after the local data; a provider failure leaves the local deletion in place.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	if err := DeleteAccount(r.Context(), h.db, userID); err != nil {
		writeMutationError(w, err, "failed to delete account", "user_id", userID)
		return
	}
	slog.Info("account data deleted", "user_id", userID)

	if err := h.provider.DeleteUser(r.Context(), userID); err != nil {
		writeMutationError(w, fmt.Errorf("%w: %v", ErrIdentityProvider, err), "failed to delete identity provider user", "user_id", userID)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{Success: true})
}
