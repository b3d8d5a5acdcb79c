// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package idempotency remembers the response to a keyed request so a retry
// with the same key replays it instead of repeating the side effect.
package idempotency

import (
	"context"
	"strings"
	"time"
)

// HeaderName is the request header carrying the client's key.
const HeaderName = "Idempotency-Key"

// MaxKeyLength bounds client supplied keys.
const MaxKeyLength = 255

// DefaultTTL is how long a stored response is replayed.
const DefaultTTL = 24 * time.Hour

// Record is a stored response. A record with Status 0 is a claim whose
// request has not finished yet.
type Record struct {
	Fingerprint string `mapstructure:"fingerprint"`
	Status      int    `mapstructure:"status"`
	Body        string `mapstructure:"body"`
}

// Pending reports whether the claiming request is still running.
func (r Record) Pending() bool {
	return r.Status == 0
}

// Store persists records per user and key. Get returns nil, nil when
// nothing (or only an expired record) is stored.
//
// Claim reserves the key for a request identified by fingerprint. It returns
// nil, nil when the caller now owns the key, and the live record otherwise.
// The owner finishes with Save, or Release when the request had no effect.
type Store interface {
	Get(ctx context.Context, userID, key string) (*Record, error)
	Claim(ctx context.Context, userID, key, fingerprint string) (*Record, error)
	Save(ctx context.Context, userID, key string, rec Record) error
	Release(ctx context.Context, userID, key string) error
}

// Fingerprint identifies the request a key was first used for.
func Fingerprint(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

// ValidKey reports whether key is usable: non-empty, bounded and printable ASCII.
func ValidKey(key string) bool {
	if key == "" || len(key) > MaxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x21 || key[i] > 0x7e {
			return false
		}
	}
	return true
}
