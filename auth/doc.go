// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifiers and session token verification.

# IDs

Rows are keyed by random UUIDs:

	id := auth.GenerateID()

# Session Tokens

Users sign in through an external identity provider, which hands the client
an HS256 JWT. The subject claim is the user id used throughout the store.

	v := auth.NewVerifier(cfg.JWTSecret)
	userID, err := v.Verify(token)

Tokens without an expiry, signed with another algorithm, or missing a
subject are rejected with ErrInvalidToken. BearerToken pulls the token out of
an Authorization header.

IssueToken signs tokens with the same secret. It exists for tests and local
development; production tokens come from the provider.
*/
package auth
