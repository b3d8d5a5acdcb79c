// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections, schema creation and transactions.

# Connecting

Open picks the driver from the configured database type (lib/pq for
postgres, modernc.org/sqlite for sqlite) and pings the server:

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - app_user: Public profile for an identity provider user
  - poll: Question, denormalized counters and author username
  - poll_option: Options with their vote counter
  - poll_vote: One row per (poll, user), the source of truth for tallies
  - poll_like: One row per (poll, user)
  - comment: Poll comments
  - vote_request: Stored vote responses keyed by Idempotency-Key

# Relationships

	poll 1──* poll_option
	poll 1──* poll_vote *──1 poll_option
	poll 1──* poll_like
	poll 1──* comment

Handlers delete children explicitly before their parents, so behaviour does
not depend on SQLite's foreign key pragma.

# Transactions

Every mutating handler runs inside WithTx:

	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		// ...
		return nil
	})

# Constraint Errors

IsUniqueViolation recognizes unique and primary key violations from both
drivers so callers can map them to 409 Conflict.
*/
package db
