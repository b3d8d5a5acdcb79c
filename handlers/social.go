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
	"github.com/danielhkuo/pollspree/textfilter"
)

// ToggleLike likes the poll, or removes an existing like. It reports
// whether the poll is liked afterwards.
func ToggleLike(ctx context.Context, conn *sql.DB, pollID, userID string) (bool, error) {
	var liked bool
	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		if err := pollExists(ctx, tx, pollID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM poll_like WHERE poll_id = $1 AND user_id = $2", pollID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete like: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if n > 0 {
			_, err = tx.ExecContext(ctx,
				"UPDATE poll SET likes = "+fmt.Sprintf(decrement, "likes")+" WHERE id = $1", pollID)
			if err != nil {
				return fmt.Errorf("failed to decrement likes: %w", err)
			}
			liked = false
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_like (poll_id, user_id, created_at) VALUES ($1, $2, $3)
		`, pollID, userID, nowMillis())
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert like: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE poll SET likes = likes + 1 WHERE id = $1", pollID); err != nil {
			return fmt.Errorf("failed to increment likes: %w", err)
		}
		liked = true
		return nil
	})
	return liked, err
}

// LikeStatus reports whether userID likes the poll
func LikeStatus(ctx context.Context, q queryer, pollID, userID string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM poll_like WHERE poll_id = $1 AND user_id = $2", pollID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query like: %w", err)
	}
	return true, nil
}

// RecordView bumps the view counter. Unknown polls are ignored.
func RecordView(ctx context.Context, conn *sql.DB, pollID string) error {
	if _, err := conn.ExecContext(ctx, "UPDATE poll SET views = views + 1 WHERE id = $1", pollID); err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

func pollExists(ctx context.Context, q queryer, pollID string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM poll WHERE id = $1", pollID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrPollNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query poll: %w", err)
	}
	return nil
}

type SocialHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	filter *textfilter.Filter
}

func NewSocialHandler(db *sql.DB, cfg cliparse.Config, filter *textfilter.Filter) *SocialHandler {
	return &SocialHandler{db: db, cfg: cfg, filter: filter}
}

// ToggleLike handles POST /polls/{id}/like
func (h *SocialHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	userID, _ := middleware.UserID(r.Context())

	liked, err := ToggleLike(r.Context(), h.db, pollID, userID)
	if err != nil {
		writeError(w, err, "failed to toggle like", "poll_id", pollID)
		return
	}

	slog.Info("poll like toggled", "poll_id", pollID, "user_id", userID, "liked", liked)
	middleware.JSONResponse(w, http.StatusOK, models.LikeResponse{Liked: liked})
}

// LikeStatus handles GET /polls/{id}/like. Anonymous callers never like.
func (h *SocialHandler) LikeStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.JSONResponse(w, http.StatusOK, models.LikeResponse{Liked: false})
		return
	}

	liked, err := LikeStatus(r.Context(), h.db, r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err, "failed to load like status", "poll_id", r.PathValue("id"))
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.LikeResponse{Liked: liked})
}

// RecordView handles POST /polls/{id}/view
func (h *SocialHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	if err := RecordView(r.Context(), h.db, r.PathValue("id")); err != nil {
		writeError(w, err, "failed to record view", "poll_id", r.PathValue("id"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
