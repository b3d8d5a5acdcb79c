// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/models"
)

// ListPolls returns one page of the newest-first feed. The cursor is opaque
// to clients: "<created_at>:<id>" of the last poll on the previous page.
func ListPolls(ctx context.Context, conn *sql.DB, limit int, cursor string) (models.PollPage, error) {
	query := pollSelect
	args := []any{}
	if cursor != "" {
		createdAt, id, err := parseFeedCursor(cursor)
		if err != nil {
			return models.PollPage{}, err
		}
		query += " WHERE p.created_at < $1 OR (p.created_at = $1 AND p.id < $2)"
		args = append(args, createdAt, id)
	}
	query += fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT %d", limit+1)

	polls, err := queryPolls(ctx, conn, query, args...)
	if err != nil {
		return models.PollPage{}, err
	}

	page := models.PollPage{IsDone: len(polls) <= limit}
	if !page.IsDone {
		polls = polls[:limit]
		last := polls[len(polls)-1]
		next := strconv.FormatInt(last.CreatedAt, 10) + ":" + last.ID
		page.ContinueCursor = &next
	}

	if err := attachOptions(ctx, conn, polls); err != nil {
		return models.PollPage{}, err
	}
	page.Polls = polls
	return page, nil
}

func parseFeedCursor(cursor string) (int64, string, error) {
	ts, id, ok := strings.Cut(cursor, ":")
	if !ok || id == "" {
		return 0, "", invalid("Invalid cursor")
	}
	createdAt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, "", invalid("Invalid cursor")
	}
	return createdAt, id, nil
}

// TrendingPolls returns the top polls by trending score
func TrendingPolls(ctx context.Context, conn *sql.DB) (models.PollPage, error) {
	polls, err := queryPolls(ctx, conn, pollSelect+fmt.Sprintf(`
		ORDER BY (p.total_votes * 2 + p.likes + p.views * 0.1) DESC, p.created_at DESC
		LIMIT %d
	`, models.TrendingLimit))
	if err != nil {
		return models.PollPage{}, err
	}
	if err := attachOptions(ctx, conn, polls); err != nil {
		return models.PollPage{}, err
	}
	return models.PollPage{Polls: polls, IsDone: true}, nil
}

// UserFeedOptions selects which of a user's polls to list
type UserFeedOptions struct {
	Authored bool
	Voted    bool
	Sort     string
	Limit    int
	Cursor   string // id of the last poll on the previous page
}

// UserPolls lists polls a user authored and/or voted on. When only voted
// polls are requested the user's own polls are left out.
func UserPolls(ctx context.Context, conn *sql.DB, userID string, opts UserFeedOptions) (models.PollPage, error) {
	if !opts.Authored && !opts.Voted {
		return models.PollPage{Polls: []models.Poll{}, IsDone: true}, nil
	}

	var where string
	switch {
	case opts.Authored && opts.Voted:
		where = "p.author_id = $1 OR p.id IN (SELECT poll_id FROM poll_vote WHERE user_id = $1)"
	case opts.Authored:
		where = "p.author_id = $1"
	default:
		where = "p.author_id <> $1 AND p.id IN (SELECT poll_id FROM poll_vote WHERE user_id = $1)"
	}

	polls, err := queryPolls(ctx, conn, pollSelect+" WHERE "+where+" ORDER BY p.created_at DESC, p.id DESC", userID)
	if err != nil {
		return models.PollPage{}, err
	}
	sortPolls(polls, opts.Sort)

	start := 0
	if opts.Cursor != "" {
		for i, p := range polls {
			if p.ID == opts.Cursor {
				start = i + 1
				break
			}
		}
	}
	end := min(start+opts.Limit, len(polls))
	start = min(start, end)

	page := models.PollPage{Polls: polls[start:end], IsDone: end >= len(polls)}
	if !page.IsDone && end > start {
		next := polls[end-1].ID
		page.ContinueCursor = &next
	}

	if err := attachOptions(ctx, conn, page.Polls); err != nil {
		return models.PollPage{}, err
	}
	return page, nil
}

// sortPolls orders polls already sorted newest first. Unknown orders keep
// newest first.
func sortPolls(polls []models.Poll, order string) {
	switch order {
	case models.SortOldest:
		sort.SliceStable(polls, func(i, j int) bool { return polls[i].CreatedAt < polls[j].CreatedAt })
	case models.SortMostVoted:
		sort.SliceStable(polls, func(i, j int) bool { return polls[i].TotalVotes > polls[j].TotalVotes })
	case models.SortLeastVoted:
		sort.SliceStable(polls, func(i, j int) bool { return polls[i].TotalVotes < polls[j].TotalVotes })
	}
}

// LookupVotes maps every requested poll id to the option the user picked,
// or nil.
func LookupVotes(ctx context.Context, conn *sql.DB, userID string, pollIDs []string) (map[string]*string, error) {
	result := make(map[string]*string, len(pollIDs))
	if len(pollIDs) == 0 {
		return result, nil
	}

	args := []any{userID}
	for _, id := range pollIDs {
		result[id] = nil
		args = append(args, id)
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT poll_id, option_id FROM poll_vote
		WHERE user_id = $1 AND poll_id IN (`+db.Placeholders(2, len(pollIDs))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pollID, optionID string
		if err := rows.Scan(&pollID, &optionID); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		result[pollID] = &optionID
	}
	return result, rows.Err()
}

// PollStats totals polls and votes, optionally for one author
func PollStats(ctx context.Context, conn *sql.DB, authorID string) (models.PollStats, error) {
	query := "SELECT COUNT(*), COALESCE(SUM(total_votes), 0) FROM poll"
	args := []any{}
	if authorID != "" {
		query += " WHERE author_id = $1"
		args = append(args, authorID)
	}

	var stats models.PollStats
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&stats.TotalPolls, &stats.TotalVotes); err != nil {
		return stats, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}

type FeedHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewFeedHandler(db *sql.DB, cfg cliparse.Config) *FeedHandler {
	return &FeedHandler{db: db, cfg: cfg}
}

// pageLimit reads ?limit=, defaulting and clamping to the page bounds
func pageLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return models.DefaultPageSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, invalid("limit must be a positive integer")
	}
	return min(n, models.MaxPageSize), nil
}

// boolParam reads a true/false query parameter
func boolParam(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalid(name + " must be true or false")
	}
	return v, nil
}

// ListPolls handles GET /polls
func (h *FeedHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	limit, err := pageLimit(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	page, err := ListPolls(r.Context(), h.db, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, err, "failed to list polls")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, page)
}

// Trending handles GET /polls/trending
func (h *FeedHandler) Trending(w http.ResponseWriter, r *http.Request) {
	page, err := TrendingPolls(r.Context(), h.db)
	if err != nil {
		writeError(w, err, "failed to list trending polls")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, page)
}

// UserPolls handles GET /users/{userId}/polls
func (h *FeedHandler) UserPolls(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	limit, err := pageLimit(r)
	if err != nil {
		writeError(w, err, "")
		return
	}
	authored, err := boolParam(r, "authored", true)
	if err != nil {
		writeError(w, err, "")
		return
	}
	voted, err := boolParam(r, "voted", true)
	if err != nil {
		writeError(w, err, "")
		return
	}

	page, err := UserPolls(r.Context(), h.db, userID, UserFeedOptions{
		Authored: authored,
		Voted:    voted,
		Sort:     r.URL.Query().Get("sort"),
		Limit:    limit,
		Cursor:   r.URL.Query().Get("cursor"),
	})
	if err != nil {
		writeError(w, err, "failed to list user polls", "user_id", userID)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, page)
}

// LookupVotes handles POST /votes/lookup
func (h *FeedHandler) LookupVotes(w http.ResponseWriter, r *http.Request) {
	var req models.UserVotesRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UserID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if len(req.PollIDs) > models.MaxPageSize {
		middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("At most %d poll ids per lookup", models.MaxPageSize))
		return
	}

	votes, err := LookupVotes(r.Context(), h.db, req.UserID, req.PollIDs)
	if err != nil {
		writeError(w, err, "failed to look up votes", "user_id", req.UserID)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, votes)
}

// MyVote handles GET /polls/{id}/my-vote
func (h *FeedHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	userID, _ := middleware.UserID(r.Context())

	votes, err := LookupVotes(r.Context(), h.db, userID, []string{pollID})
	if err != nil {
		writeError(w, err, "failed to look up vote", "poll_id", pollID)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.UserVoteResponse{
		PollID:   pollID,
		OptionID: votes[pollID],
	})
}

// Random handles GET /polls/random
func (h *FeedHandler) Random(w http.ResponseWriter, r *http.Request) {
	polls, err := queryPolls(r.Context(), h.db, pollSelect+" ORDER BY RANDOM() LIMIT 1")
	if err == nil {
		err = attachOptions(r.Context(), h.db, polls)
	}
	if err != nil {
		writeError(w, err, "failed to pick random poll")
		return
	}
	if len(polls) == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "No polls yet")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, polls[0])
}

// Stats handles GET /stats
func (h *FeedHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := PollStats(r.Context(), h.db, "")
	if err != nil {
		writeError(w, err, "failed to load stats")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stats)
}

// UserStats handles GET /users/{userId}/stats
func (h *FeedHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	stats, err := PollStats(r.Context(), h.db, userID)
	if err != nil {
		writeError(w, err, "failed to load user stats", "user_id", userID)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stats)
}
