// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/idempotency"
	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/models"
)

// ReplayedHeader is set on responses served from the idempotency store
const ReplayedHeader = "Idempotent-Replayed"

type VotingHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	store idempotency.Store
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, store idempotency.Store) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, store: store}
}

// Vote handles POST /polls/{id}/vote
//
// Repeating a request toggles the vote. Clients that retry on network
// errors send an Idempotency-Key header; a repeat with the same key gets the
// first response back instead of a second toggle.
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	userID, _ := middleware.UserID(r.Context())

	key := r.Header.Get(idempotency.HeaderName)
	if key != "" && !idempotency.ValidKey(key) {
		middleware.JSONResponse(w, http.StatusBadRequest, models.VoteResponse{Error: "Invalid Idempotency-Key header"})
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.JSONResponse(w, http.StatusBadRequest, models.VoteResponse{Error: "Invalid JSON"})
		return
	}
	if req.OptionID == "" {
		middleware.JSONResponse(w, http.StatusBadRequest, models.VoteResponse{Error: "option_id is required"})
		return
	}

	// Reserve the key before voting
	fingerprint := idempotency.Fingerprint(pollID, req.OptionID)
	if key != "" {
		rec, err := h.store.Claim(r.Context(), userID, key, fingerprint)
		if err != nil {
			slog.Error("failed to claim idempotency key", "error", err, "user_id", userID)
			middleware.JSONResponse(w, http.StatusInternalServerError, models.VoteResponse{Error: "Database error"})
			return
		}
		if rec != nil {
			replay(w, rec, fingerprint, pollID, userID)
			return
		}
	}

	status := http.StatusOK
	var resp models.VoteResponse

	action, poll, err := CastVote(r.Context(), h.db, pollID, req.OptionID, userID)
	if err != nil {
		status = statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("failed to cast vote", "error", err, "poll_id", pollID)
		}
		resp = models.VoteResponse{Error: messageFor(err)}
	} else {
		slog.Info("vote cast", "poll_id", pollID, "option_id", req.OptionID, "user_id", userID, "action", action)
		resp = models.VoteResponse{Success: true, Action: action, Poll: poll}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to encode vote response", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"Failed to encode response"}`)
	}

	if key != "" {
		h.finish(context.WithoutCancel(r.Context()), userID, key, idempotency.Record{Fingerprint: fingerprint, Status: status, Body: string(body)})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// finish stores the response for the claimed key. 5xx and 409 responses
// changed nothing and release the claim instead. A failed save leaves the
// claim pending.
func (h *VotingHandler) finish(ctx context.Context, userID, key string, rec idempotency.Record) {
	if rec.Status >= http.StatusInternalServerError || rec.Status == http.StatusConflict {
		if err := h.store.Release(ctx, userID, key); err != nil {
			slog.Error("failed to release idempotency key", "error", err, "user_id", userID)
		}
		return
	}
	if err := h.store.Save(ctx, userID, key, rec); err != nil {
		slog.Error("failed to save idempotency record", "error", err, "user_id", userID)
	}
}

// replay answers a request whose key is already taken
func replay(w http.ResponseWriter, rec *idempotency.Record, fingerprint, pollID, userID string) {
	switch {
	case rec.Fingerprint != fingerprint:
		middleware.JSONResponse(w, http.StatusUnprocessableEntity, models.VoteResponse{Error: "Idempotency-Key reused with a different request"})
	case rec.Pending():
		w.Header().Set("Retry-After", "1")
		middleware.JSONResponse(w, http.StatusConflict, models.VoteResponse{Error: "A request with this Idempotency-Key is still in progress"})
	default:
		slog.Info("vote replayed", "poll_id", pollID, "user_id", userID)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(rec.Status)
		w.Write([]byte(rec.Body))
	}
}
