// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/pollspree/auth"
	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/models"
	"github.com/danielhkuo/pollspree/textfilter"
)

// ListComments returns a poll's comments newest first
func ListComments(ctx context.Context, conn *sql.DB, pollID string) ([]models.Comment, error) {
	if err := pollExists(ctx, conn, pollID); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT c.id, c.poll_id, c.user_id, c.username, c.text, c.created_at, u.profile_image_url
		FROM comment c
		LEFT JOIN app_user u ON u.user_id = c.user_id
		WHERE c.poll_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PollID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt, &c.AuthorProfileImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CreateComment stores a comment under the author's current username
func CreateComment(ctx context.Context, conn *sql.DB, filter *textfilter.Filter, pollID, userID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("Comment cannot be empty.")
	}
	if utf8.RuneCountInString(text) > models.MaxCommentLength {
		return nil, invalid(fmt.Sprintf("Comment cannot exceed %d characters.", models.MaxCommentLength))
	}
	if !filter.Allowed(text) {
		return nil, invalid("Comment contains inappropriate content and cannot be used.")
	}

	c := &models.Comment{
		ID:        auth.GenerateID(),
		PollID:    pollID,
		UserID:    userID,
		Text:      text,
		CreatedAt: nowMillis(),
	}
	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		if err := pollExists(ctx, tx, pollID); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx, "SELECT username, profile_image_url FROM app_user WHERE user_id = $1", userID).
			Scan(&c.Username, &c.AuthorProfileImageURL)
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO comment (id, poll_id, user_id, username, text, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.ID, c.PollID, c.UserID, c.Username, c.Text, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteComment removes a comment written by userID
func DeleteComment(ctx context.Context, conn *sql.DB, commentID, userID string) error {
	return db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		var authorID string
		err := tx.QueryRowContext(ctx, "SELECT user_id FROM comment WHERE id = $1", commentID).Scan(&authorID)
		if err == sql.ErrNoRows {
			return ErrCommentNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query comment: %w", err)
		}
		if authorID != userID {
			return ErrNotCommentAuthor
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM comment WHERE id = $1", commentID); err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		return nil
	})
}

// ListComments handles GET /polls/{id}/comments
func (h *SocialHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := ListComments(r.Context(), h.db, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to list comments", "poll_id", r.PathValue("id"))
		return
	}
	middleware.JSONResponse(w, http.StatusOK, comments)
}

// CreateComment handles POST /polls/{id}/comments
func (h *SocialHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	userID, _ := middleware.UserID(r.Context())

	var req models.CreateCommentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	comment, err := CreateComment(r.Context(), h.db, h.filter, pollID, userID, req.Text)
	if err != nil {
		writeError(w, err, "failed to create comment", "poll_id", pollID)
		return
	}

	slog.Info("comment created", "poll_id", pollID, "comment_id", comment.ID, "user_id", userID)
	middleware.JSONResponse(w, http.StatusCreated, comment)
}

// DeleteComment handles DELETE /comments/{id}
func (h *SocialHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := r.PathValue("id")
	userID, _ := middleware.UserID(r.Context())

	if err := DeleteComment(r.Context(), h.db, commentID, userID); err != nil {
		writeMutationError(w, err, "failed to delete comment", "comment_id", commentID)
		return
	}

	slog.Info("comment deleted", "comment_id", commentID, "user_id", userID)
	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{Success: true})
}
