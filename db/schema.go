// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The statements are restricted to the subset shared by PostgreSQL and SQLite.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Users (identity lives at the provider; this is the public profile)
CREATE TABLE IF NOT EXISTS app_user (
    user_id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    profile_image_url TEXT,
    created_at BIGINT NOT NULL
);

-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    total_votes INTEGER NOT NULL DEFAULT 0 CHECK (total_votes >= 0),
    author_id TEXT NOT NULL,
    author_username TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    views INTEGER NOT NULL DEFAULT 0 CHECK (views >= 0),
    likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
    dev BOOLEAN NOT NULL DEFAULT FALSE,
    content_hash TEXT NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_poll_created_at ON poll(created_at);
CREATE INDEX IF NOT EXISTS idx_poll_author_id ON poll(author_id);

-- Options
CREATE TABLE IF NOT EXISTS poll_option (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
    sort_order INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_option_poll_id ON poll_option(poll_id);

-- Votes (one row per user per poll)
CREATE TABLE IF NOT EXISTS poll_vote (
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    option_id TEXT NOT NULL REFERENCES poll_option(id) ON DELETE CASCADE,
    created_at BIGINT NOT NULL,
    PRIMARY KEY (poll_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_poll_vote_user_id ON poll_vote(user_id);
CREATE INDEX IF NOT EXISTS idx_poll_vote_option_id ON poll_vote(option_id);

-- Likes
CREATE TABLE IF NOT EXISTS poll_like (
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    PRIMARY KEY (poll_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_poll_like_user_id ON poll_like(user_id);

-- Comments
CREATE TABLE IF NOT EXISTS comment (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    username TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comment_poll_id ON comment(poll_id, created_at);

-- Vote idempotency records
CREATE TABLE IF NOT EXISTS vote_request (
    user_id TEXT NOT NULL,
    idem_key TEXT NOT NULL,
    fingerprint TEXT NOT NULL DEFAULT '',
    status INTEGER NOT NULL,
    body TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    expires_at BIGINT NOT NULL,
    PRIMARY KEY (user_id, idem_key)
);

CREATE INDEX IF NOT EXISTS idx_vote_request_expires_at ON vote_request(expires_at);
`
