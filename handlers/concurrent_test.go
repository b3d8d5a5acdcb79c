// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/pollspree/idempotency"
	"github.com/danielhkuo/pollspree/testutil"
)

// TestConcurrentVotes verifies that simultaneous votes from different users
// all land and the counters match the vote rows
func TestConcurrentVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	pollID, opts := testutil.CreateTestPoll(t, db, alice, "Pick one", "A", "B", "C")

	numVoters := 10
	voters := make([]string, numVoters)
	for i := range voters {
		voters[i] = testutil.CreateTestUser(t, db, fmt.Sprintf("voter%c", 'a'+i))
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if _, _, err := CastVote(ctx, db, pollID, opts[idx%len(opts)], voters[idx]); err == nil {
				successCount.Add(1)
			} else {
				t.Errorf("Voter %d failed: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful votes, got %d", numVoters, successCount.Load())
	}

	var total int
	db.QueryRow("SELECT total_votes FROM poll WHERE id = $1", pollID).Scan(&total)
	if total != numVoters {
		t.Errorf("Expected total_votes %d, got %d", numVoters, total)
	}
	testutil.AssertTally(t, db, pollID)
}

// TestConcurrentToggleSameUser hammers one user's vote from many goroutines.
// Each request either applies or reports a conflict; the tally never drifts.
func TestConcurrentToggleSameUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	pollID, opts := testutil.CreateTestPoll(t, db, alice, "Cats or dogs?", "Cats", "Dogs")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, _, err := CastVote(ctx, db, pollID, opts[idx%2], bob)
			if err != nil && !errors.Is(err, ErrConflict) {
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	var rows int
	db.QueryRow("SELECT COUNT(*) FROM poll_vote WHERE poll_id = $1", pollID).Scan(&rows)
	if rows > 1 {
		t.Errorf("Expected at most one vote row for bob, got %d", rows)
	}
	testutil.AssertTally(t, db, pollID)
}

// TestConcurrentLikes verifies like toggles from many users keep the
// counter equal to the like rows
func TestConcurrentLikes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	pollID, _ := testutil.CreateTestPoll(t, db, alice, "Like me?", "Yes", "No")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			userID := fmt.Sprintf("user_%d", idx)
			if _, err := ToggleLike(ctx, db, pollID, userID); err != nil {
				t.Errorf("Like %d failed: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	var likes, rows int
	db.QueryRow("SELECT likes FROM poll WHERE id = $1", pollID).Scan(&likes)
	db.QueryRow("SELECT COUNT(*) FROM poll_like WHERE poll_id = $1", pollID).Scan(&rows)
	if likes != 8 || rows != 8 {
		t.Errorf("Expected 8 likes and 8 rows, got likes=%d rows=%d", likes, rows)
	}
}

// TestConcurrentIdempotentRetries sends the same keyed vote many times at
// once. At most one toggle may apply.
func TestConcurrentIdempotentRetries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewVotingHandler(db, testutil.GetTestConfig(), idempotency.NewSQLStore(db, idempotency.DefaultTTL))

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	pollID, opts := testutil.CreateTestPoll(t, db, alice, "Cats or dogs?", "Cats", "Dogs")

	// Prime the key so every concurrent retry replays
	w := httptest.NewRecorder()
	handler.Vote(w, voteRequest(pollID, opts[0], bob, "same-key"))
	testutil.AssertStatus(t, w, http.StatusOK)

	var replayed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			handler.Vote(w, voteRequest(pollID, opts[0], bob, "same-key"))
			if w.Header().Get(ReplayedHeader) == "true" {
				replayed.Add(1)
			}
		}()
	}
	wg.Wait()

	if replayed.Load() != 5 {
		t.Errorf("Expected all 5 retries to replay, got %d", replayed.Load())
	}

	var total int
	db.QueryRow("SELECT total_votes FROM poll WHERE id = $1", pollID).Scan(&total)
	if total != 1 {
		t.Errorf("Expected the single vote to survive retries, total_votes=%d", total)
	}
	testutil.AssertTally(t, db, pollID)
}

// slowSaveStore delays Save so concurrent retries overlap the first request
type slowSaveStore struct {
	idempotency.Store
	delay time.Duration
}

func (s slowSaveStore) Save(ctx context.Context, userID, key string, rec idempotency.Record) error {
	time.Sleep(s.delay)
	return s.Store.Save(ctx, userID, key, rec)
}

// TestConcurrentFirstUseOfKey fires the same keyed vote at once with a key
// nobody has used yet. Exactly one request may cast the vote.
func TestConcurrentFirstUseOfKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := slowSaveStore{Store: idempotency.NewSQLStore(db, idempotency.DefaultTTL), delay: 20 * time.Millisecond}
	handler := NewVotingHandler(db, testutil.GetTestConfig(), store)

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	pollID, opts := testutil.CreateTestPoll(t, db, alice, "Cats or dogs?", "Cats", "Dogs")

	var executed, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			handler.Vote(w, voteRequest(pollID, opts[0], bob, "fresh-key"))
			switch {
			case w.Code == http.StatusOK && w.Header().Get(ReplayedHeader) == "":
				executed.Add(1)
			case w.Code == http.StatusConflict, w.Header().Get(ReplayedHeader) == "true":
				rejected.Add(1)
			default:
				t.Errorf("Unexpected response %d: %s", w.Code, w.Body.String())
			}
		}()
	}
	wg.Wait()

	if executed.Load() != 1 || rejected.Load() != 3 {
		t.Errorf("Expected 1 executed and 3 held back, got executed=%d rejected=%d", executed.Load(), rejected.Load())
	}

	var total int
	db.QueryRow("SELECT total_votes FROM poll WHERE id = $1", pollID).Scan(&total)
	if total != 1 {
		t.Errorf("Expected total_votes=1, got %d", total)
	}
	testutil.AssertTally(t, db, pollID)
}
