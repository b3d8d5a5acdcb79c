// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/pollspree/auth"
	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/models"
	"github.com/danielhkuo/pollspree/textfilter"
)

// PollInput is a validated-on-create poll
type PollInput struct {
	Question string
	Options  []string
	AuthorID string
	Dev      bool
}

// CreatePoll validates input and stores the poll with its options. The
// author's current username is copied onto the poll.
func CreatePoll(ctx context.Context, conn *sql.DB, filter *textfilter.Filter, in PollInput) (string, error) {
	if err := validatePollShape(in.Question, in.Options); err != nil {
		return "", err
	}

	hash := contentHash(in.Question, in.Options)
	var dup int
	err := conn.QueryRowContext(ctx, "SELECT 1 FROM poll WHERE content_hash = $1", hash).Scan(&dup)
	if err == nil {
		return "", ErrDuplicatePoll
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to check duplicate poll: %w", err)
	}

	if !filter.Allowed(in.Question) {
		return "", invalid("Poll question contains inappropriate content and cannot be used.")
	}
	fields := make([]textfilter.Field, len(in.Options))
	for i, opt := range in.Options {
		fields[i] = textfilter.Field{Name: fmt.Sprintf("Poll option %d", i+1), Text: opt}
	}
	if name, rejected := filter.FirstRejected(fields...); rejected {
		return "", invalid(name + " contains inappropriate content and cannot be used.")
	}

	pollID := auth.GenerateID()
	err = db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		var authorUsername string
		err := tx.QueryRowContext(ctx, "SELECT username FROM app_user WHERE user_id = $1", in.AuthorID).Scan(&authorUsername)
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query author: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll (id, question, total_votes, author_id, author_username, created_at, views, likes, dev, content_hash)
			VALUES ($1, $2, 0, $3, $4, $5, 0, 0, $6, $7)
		`, pollID, strings.TrimSpace(in.Question), in.AuthorID, authorUsername, nowMillis(), in.Dev, hash)
		if db.IsUniqueViolation(err) {
			return ErrDuplicatePoll
		}
		if err != nil {
			return fmt.Errorf("failed to insert poll: %w", err)
		}

		for i, opt := range in.Options {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO poll_option (id, poll_id, text, votes, sort_order)
				VALUES ($1, $2, $3, 0, $4)
			`, auth.GenerateID(), pollID, strings.TrimSpace(opt), i)
			if err != nil {
				return fmt.Errorf("failed to insert option: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return pollID, nil
}

// validatePollShape checks lengths, option count and duplicate options
func validatePollShape(question string, options []string) error {
	if strings.TrimSpace(question) == "" {
		return invalid("Poll question cannot be empty.")
	}
	if utf8.RuneCountInString(question) > models.MaxQuestionLength {
		return invalid(fmt.Sprintf("Poll question cannot exceed %d characters.", models.MaxQuestionLength))
	}

	if len(options) < models.MinOptions {
		return invalid(fmt.Sprintf("Poll must have at least %d options.", models.MinOptions))
	}
	if len(options) > models.MaxOptions {
		return invalid(fmt.Sprintf("Poll cannot have more than %d options.", models.MaxOptions))
	}

	for i, opt := range options {
		if strings.TrimSpace(opt) == "" {
			return invalid(fmt.Sprintf("Poll option %d cannot be empty.", i+1))
		}
		if utf8.RuneCountInString(opt) > models.MaxOptionLength {
			return invalid(fmt.Sprintf("Poll option %d cannot exceed %d characters.", i+1, models.MaxOptionLength))
		}
	}

	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		key := normalize(opt)
		if _, ok := seen[key]; ok {
			return invalid("Poll cannot have duplicate options.")
		}
		seen[key] = struct{}{}
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// contentHash identifies a poll by its normalized question and option set,
// ignoring option order
func contentHash(question string, options []string) string {
	norm := make([]string, len(options))
	for i, opt := range options {
		norm[i] = normalize(opt)
	}
	sort.Strings(norm)

	h := sha256.New()
	h.Write([]byte(normalize(question)))
	for _, opt := range norm {
		h.Write([]byte{0})
		h.Write([]byte(opt))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DeletePoll removes a poll and everything hanging off it. Only the author
// may delete.
func DeletePoll(ctx context.Context, conn *sql.DB, pollID, userID string) error {
	return db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		var authorID string
		err := tx.QueryRowContext(ctx, "SELECT author_id FROM poll WHERE id = $1", pollID).Scan(&authorID)
		if err == sql.ErrNoRows {
			return ErrPollNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query poll: %w", err)
		}
		if authorID != userID {
			return ErrNotAuthor
		}

		return deletePollRows(ctx, tx, "= $1", pollID)
	})
}

// deletePollRows deletes polls matching "id <match>" and their children,
// children first
func deletePollRows(ctx context.Context, tx *sql.Tx, match string, args ...any) error {
	for _, stmt := range []string{
		"DELETE FROM comment WHERE poll_id " + match,
		"DELETE FROM poll_like WHERE poll_id " + match,
		"DELETE FROM poll_vote WHERE poll_id " + match,
		"DELETE FROM poll_option WHERE poll_id " + match,
		"DELETE FROM poll WHERE id " + match,
	} {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to delete poll rows: %w", err)
		}
	}
	return nil
}

type PollHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	filter *textfilter.Filter
}

func NewPollHandler(db *sql.DB, cfg cliparse.Config, filter *textfilter.Filter) *PollHandler {
	return &PollHandler{db: db, cfg: cfg, filter: filter}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.JSONResponse(w, http.StatusBadRequest, models.CreatePollResponse{Error: "Invalid JSON"})
		return
	}

	pollID, err := CreatePoll(r.Context(), h.db, h.filter, PollInput{
		Question: req.Question,
		Options:  req.Options,
		AuthorID: userID,
		Dev:      req.Dev,
	})
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("failed to create poll", "error", err, "author_id", userID)
		}
		middleware.JSONResponse(w, status, models.CreatePollResponse{Error: messageFor(err)})
		return
	}

	slog.Info("poll created", "poll_id", pollID, "author_id", userID, "options", len(req.Options))

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		Success: true,
		PollID:  pollID,
	})
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := loadPoll(r.Context(), h.db, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "failed to load poll", "poll_id", r.PathValue("id"))
		return
	}
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// DeletePoll handles DELETE /polls/{id}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	userID, _ := middleware.UserID(r.Context())

	if err := DeletePoll(r.Context(), h.db, pollID, userID); err != nil {
		writeMutationError(w, err, "failed to delete poll", "poll_id", pollID)
		return
	}

	slog.Info("poll deleted", "poll_id", pollID, "author_id", userID)
	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{Success: true})
}
