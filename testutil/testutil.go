// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/pollspree/auth"
	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/middleware"
)

// TestJWTSecret signs tokens for GetTestConfig
const TestJWTSecret = "test-jwt-secret"

// SetupTestDB opens a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(cliparse.DatabaseSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  ":memory:",
		DatabaseType: cliparse.DatabaseSQLite,
		JWTSecret:    TestJWTSecret,
		SiteBaseURL:  "https://pollspree.test",
		CORSOrigins:  []string{"*"},
	}
}

// CreateTestUser inserts a profile and returns its user id
func CreateTestUser(t *testing.T, conn *sql.DB, username string) string {
	t.Helper()

	userID := "user_" + auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO app_user (user_id, username, profile_image_url, created_at)
		VALUES ($1, $2, NULL, $3)
	`, userID, username, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return userID
}

// CreateTestPoll inserts a poll with the given options and returns the poll
// id and option ids in order. Counters start at zero.
func CreateTestPoll(t *testing.T, conn *sql.DB, authorID, question string, options ...string) (string, []string) {
	t.Helper()

	var authorUsername string
	if err := conn.QueryRow("SELECT username FROM app_user WHERE user_id = $1", authorID).Scan(&authorUsername); err != nil {
		t.Fatalf("Failed to load poll author: %v", err)
	}

	pollID := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO poll (id, question, total_votes, author_id, author_username, created_at, views, likes, dev, content_hash)
		VALUES ($1, $2, 0, $3, $4, $5, 0, 0, FALSE, $6)
	`, pollID, question, authorID, authorUsername, time.Now().UnixMilli(), pollID)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	optionIDs := make([]string, len(options))
	for i, text := range options {
		optionIDs[i] = auth.GenerateID()
		_, err := conn.Exec(`
			INSERT INTO poll_option (id, poll_id, text, votes, sort_order)
			VALUES ($1, $2, $3, 0, $4)
		`, optionIDs[i], pollID, text, i)
		if err != nil {
			t.Fatalf("Failed to create test option: %v", err)
		}
	}
	return pollID, optionIDs
}

// SetPollCreatedAt backdates a poll for ordering tests
func SetPollCreatedAt(t *testing.T, conn *sql.DB, pollID string, createdAt int64) {
	t.Helper()
	if _, err := conn.Exec("UPDATE poll SET created_at = $1 WHERE id = $2", createdAt, pollID); err != nil {
		t.Fatalf("Failed to update poll created_at: %v", err)
	}
}

// AssertTally fails the test unless the poll's counters match its vote rows
func AssertTally(t *testing.T, conn *sql.DB, pollID string) {
	t.Helper()

	var total, sum, rowCount int
	err := conn.QueryRow(`
		SELECT p.total_votes,
			(SELECT COALESCE(SUM(votes), 0) FROM poll_option WHERE poll_id = p.id),
			(SELECT COUNT(*) FROM poll_vote WHERE poll_id = p.id)
		FROM poll p WHERE p.id = $1
	`, pollID).Scan(&total, &sum, &rowCount)
	if err != nil {
		t.Fatalf("Failed to load tally: %v", err)
	}
	if total != sum || total != rowCount {
		t.Errorf("Tally mismatch: total_votes=%d sum(option.votes)=%d vote rows=%d", total, sum, rowCount)
	}

	rows, err := conn.Query(`
		SELECT o.id, o.votes, (SELECT COUNT(*) FROM poll_vote v WHERE v.option_id = o.id)
		FROM poll_option o WHERE o.poll_id = $1
	`, pollID)
	if err != nil {
		t.Fatalf("Failed to load option tallies: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var votes, count int
		if err := rows.Scan(&id, &votes, &count); err != nil {
			t.Fatalf("Failed to scan option tally: %v", err)
		}
		if votes != count {
			t.Errorf("Option %s has votes=%d but %d vote rows", id, votes, count)
		}
	}
}

// AuthHeaders returns an Authorization header for userID signed with the
// test secret
func AuthHeaders(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, err := auth.IssueToken(userID, TestJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// AsUser attaches a verified user id to the request, as RequireUser would
func AsUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
