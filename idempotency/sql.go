// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package idempotency

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLStore keeps records in the vote_request table.
type SQLStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLStore(db *sql.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{db: db, ttl: ttl, now: time.Now}
}

func (s *SQLStore) Get(ctx context.Context, userID, key string) (*Record, error) {
	var rec Record
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, status, body, expires_at FROM vote_request
		WHERE user_id = $1 AND idem_key = $2
	`, userID, key).Scan(&rec.Fingerprint, &rec.Status, &rec.Body, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load idempotency record: %w", err)
	}

	if expiresAt <= s.now().UnixMilli() {
		return nil, nil
	}
	return &rec, nil
}

// Claim inserts a pending row, taking over an expired one. The primary key
// makes concurrent claims for the same key race on a single row.
func (s *SQLStore) Claim(ctx context.Context, userID, key, fingerprint string) (*Record, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO vote_request (user_id, idem_key, fingerprint, status, body, created_at, expires_at)
		VALUES ($1, $2, $3, 0, '', $4, $5)
		ON CONFLICT (user_id, idem_key) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			status = 0,
			body = '',
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
		WHERE vote_request.expires_at <= $4
	`, userID, key, fingerprint, now.UnixMilli(), now.Add(s.ttl).UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if n == 1 {
		return nil, nil
	}

	rec, err := s.Get(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("idempotency record for %q expired while claiming", key)
	}
	return rec, nil
}

func (s *SQLStore) Save(ctx context.Context, userID, key string, rec Record) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vote_request (user_id, idem_key, fingerprint, status, body, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, idem_key) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			status = excluded.status,
			body = excluded.body,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, userID, key, rec.Fingerprint, rec.Status, rec.Body, now.UnixMilli(), now.Add(s.ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save idempotency record: %w", err)
	}
	return nil
}

// Release drops a pending claim so the key can be used again.
func (s *SQLStore) Release(ctx context.Context, userID, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM vote_request WHERE user_id = $1 AND idem_key = $2 AND status = 0", userID, key)
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// PurgeExpired deletes records past their expiry and returns how many went.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM vote_request WHERE expires_at <= $1", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge idempotency records: %w", err)
	}
	return res.RowsAffected()
}
