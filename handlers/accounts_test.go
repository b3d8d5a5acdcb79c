// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/pollspree/idempotency"
	"github.com/danielhkuo/pollspree/models"
	"github.com/danielhkuo/pollspree/testutil"
	"github.com/danielhkuo/pollspree/textfilter"
)

type fakeProvider struct {
	deleted []string
	err     error
}

func (f *fakeProvider) DeleteUser(ctx context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

// TestDeleteAccountCascade deletes a user who authored one poll and voted on
// another user's poll
func TestDeleteAccountCascade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	filter := textfilter.Default()

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")

	ownPoll, ownOpts := testutil.CreateTestPoll(t, db, alice, "Alice asks", "Yes", "No")
	bobPoll, bobOpts := testutil.CreateTestPoll(t, db, bob, "Bob asks", "Red", "Blue")

	// alice votes Red on bob's poll, carol votes Red too
	CastVote(ctx, db, bobPoll, bobOpts[0], alice)
	CastVote(ctx, db, bobPoll, bobOpts[0], carol)
	// bob voted on alice's poll; that vote goes away with her poll
	CastVote(ctx, db, ownPoll, ownOpts[1], bob)

	ToggleLike(ctx, db, bobPoll, alice)
	ToggleLike(ctx, db, bobPoll, carol)
	CreateComment(ctx, db, filter, bobPoll, alice, "Red is best")
	CreateComment(ctx, db, filter, ownPoll, bob, "Nice poll")

	store := idempotency.NewSQLStore(db, idempotency.DefaultTTL)
	store.Save(ctx, alice, "k1", idempotency.Record{Status: http.StatusOK, Body: "{}"})

	provider := &fakeProvider{}
	handler := NewAccountHandler(db, testutil.GetTestConfig(), provider)

	w := httptest.NewRecorder()
	handler.DeleteAccount(w, testutil.AsUser(httptest.NewRequest("DELETE", "/users/me", nil), alice))

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.MutationResponse
	testutil.AssertJSON(t, w, &resp)
	if !resp.Success {
		t.Errorf("Expected success, got %+v", resp)
	}
	if len(provider.deleted) != 1 || provider.deleted[0] != alice {
		t.Errorf("Expected provider delete for alice, got %v", provider.deleted)
	}

	if _, err := loadPoll(ctx, db, ownPoll); !errors.Is(err, ErrPollNotFound) {
		t.Errorf("Expected alice's poll to be gone, got %v", err)
	}

	poll, err := loadPoll(ctx, db, bobPoll)
	if err != nil {
		t.Fatalf("Failed to load bob's poll: %v", err)
	}
	if poll.TotalVotes != 1 {
		t.Errorf("Expected total_votes 1 after delete, got %d", poll.TotalVotes)
	}
	red := optionVotes(t, poll, bobOpts[0])
	if red.Votes != 1 || len(red.VotedUserIDs) != 1 || red.VotedUserIDs[0] != carol {
		t.Errorf("Expected only carol's Red vote left, got %+v", red)
	}
	if poll.Likes != 1 {
		t.Errorf("Expected likes recounted to 1, got %d", poll.Likes)
	}
	testutil.AssertTally(t, db, bobPoll)

	for _, check := range []struct {
		query string
		want  int
	}{
		{"SELECT COUNT(*) FROM app_user WHERE user_id = $1", 0},
		{"SELECT COUNT(*) FROM poll_vote WHERE user_id = $1", 0},
		{"SELECT COUNT(*) FROM poll_like WHERE user_id = $1", 0},
		{"SELECT COUNT(*) FROM comment WHERE user_id = $1", 0},
		{"SELECT COUNT(*) FROM vote_request WHERE user_id = $1", 0},
		{"SELECT COUNT(*) FROM poll WHERE author_id = $1", 0},
	} {
		var n int
		if err := db.QueryRow(check.query, alice).Scan(&n); err != nil {
			t.Fatalf("%s: %v", check.query, err)
		}
		if n != check.want {
			t.Errorf("%s: expected %d, got %d", check.query, check.want, n)
		}
	}

	var orphans int
	db.QueryRow("SELECT COUNT(*) FROM comment WHERE poll_id = $1", ownPoll).Scan(&orphans)
	if orphans != 0 {
		t.Errorf("Expected comments on alice's poll to be deleted, got %d", orphans)
	}
}

func TestDeleteAccountProviderFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)

	alice := testutil.CreateTestUser(t, db, "alice")
	testutil.CreateTestPoll(t, db, alice, "Alice asks", "Yes", "No")

	handler := NewAccountHandler(db, testutil.GetTestConfig(), &fakeProvider{err: errors.New("provider down")})

	w := httptest.NewRecorder()
	handler.DeleteAccount(w, testutil.AsUser(httptest.NewRequest("DELETE", "/users/me", nil), alice))

	testutil.AssertStatus(t, w, http.StatusBadGateway)

	var resp models.MutationResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Success || resp.Error != ErrIdentityProvider.Error() {
		t.Errorf("Expected identity provider error, got %+v", resp)
	}

	// local data stays deleted
	var users, polls int
	db.QueryRow("SELECT COUNT(*) FROM app_user").Scan(&users)
	db.QueryRow("SELECT COUNT(*) FROM poll").Scan(&polls)
	if users != 0 || polls != 0 {
		t.Errorf("Expected local data deleted, got users=%d polls=%d", users, polls)
	}
}

func TestDeleteAccountWithoutProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)

	if err := DeleteAccount(context.Background(), db, "user_ghost"); err != nil {
		t.Errorf("Deleting an account with no data should succeed, got %v", err)
	}
}
