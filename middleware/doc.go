// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /polls", middleware.WithLogging(handler))

Logs request start (method, path, client IP) and completion (status,
duration_ms).

# Authentication

Mutating routes require a bearer token issued by the identity provider:

	mux.HandleFunc("POST /polls", middleware.WithLogging(
		middleware.RequireUser(verifier, h.CreatePoll)))

Handlers read the verified id with middleware.UserID(r.Context()).
OptionalUser attaches the id when a valid token is sent but never rejects.

# CORS

	handler := middleware.CORS(cfg.CORSOrigins)(mux)

Backed by github.com/rs/cors. Allows GET, POST, PUT, DELETE and OPTIONS with
the Content-Type, Authorization and Idempotency-Key headers.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

Bodies larger than 1 MiB are rejected by ParseJSONBody.
*/
package middleware
