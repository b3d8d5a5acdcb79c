// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/danielhkuo/pollspree/models"
	"github.com/danielhkuo/pollspree/testutil"
)

func pollIDs(polls []models.Poll) []string {
	ids := make([]string, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestListPollsPagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewFeedHandler(db, testutil.GetTestConfig())

	alice := testutil.CreateTestUser(t, db, "alice")

	// newest first: polls[4] .. polls[0]
	polls := make([]string, 5)
	for i := range polls {
		polls[i], _ = testutil.CreateTestPoll(t, db, alice, fmt.Sprintf("Question %d", i), "Yes", "No")
		testutil.SetPollCreatedAt(t, db, polls[i], int64(1000*(i+1)))
	}

	wantPages := [][]string{
		{polls[4], polls[3]},
		{polls[2], polls[1]},
		{polls[0]},
	}

	cursor := ""
	for i, want := range wantPages {
		path := "/polls?limit=2"
		if cursor != "" {
			path += "&cursor=" + url.QueryEscape(cursor)
		}
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()

		handler.ListPolls(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)

		var page models.PollPage
		testutil.AssertJSON(t, w, &page)

		if got := pollIDs(page.Polls); !equalIDs(got, want) {
			t.Fatalf("Page %d: expected %v, got %v", i, want, got)
		}

		last := i == len(wantPages)-1
		if page.IsDone != last {
			t.Errorf("Page %d: expected is_done=%v", i, last)
		}
		if last {
			if page.ContinueCursor != nil {
				t.Errorf("Expected nil cursor on the last page, got %q", *page.ContinueCursor)
			}
			break
		}
		if page.ContinueCursor == nil {
			t.Fatalf("Page %d: expected a continue cursor", i)
		}
		cursor = *page.ContinueCursor
	}
}

func TestListPollsExactPage(t *testing.T) {
	db := testutil.SetupTestDB(t)

	alice := testutil.CreateTestUser(t, db, "alice")
	testutil.CreateTestPoll(t, db, alice, "One", "Yes", "No")
	testutil.CreateTestPoll(t, db, alice, "Two", "Yes", "No")

	page, err := ListPolls(context.Background(), db, 2, "")
	if err != nil {
		t.Fatalf("ListPolls failed: %v", err)
	}
	if len(page.Polls) != 2 || !page.IsDone || page.ContinueCursor != nil {
		t.Errorf("Expected a single complete page, got %d polls done=%v", len(page.Polls), page.IsDone)
	}
}

func TestListPollsBadParams(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewFeedHandler(db, testutil.GetTestConfig())

	tests := []struct {
		name string
		path string
	}{
		{"cursor without separator", "/polls?cursor=abc"},
		{"cursor with bad timestamp", "/polls?cursor=xyz:abc"},
		{"cursor without id", "/polls?cursor=100:"},
		{"zero limit", "/polls?limit=0"},
		{"word limit", "/polls?limit=ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ListPolls(w, httptest.NewRequest("GET", tt.path, nil))
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestTrendingPolls(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewFeedHandler(db, testutil.GetTestConfig())

	alice := testutil.CreateTestUser(t, db, "alice")
	voted, _ := testutil.CreateTestPoll(t, db, alice, "Voted", "Yes", "No")
	liked, _ := testutil.CreateTestPoll(t, db, alice, "Liked", "Yes", "No")
	viewed, _ := testutil.CreateTestPoll(t, db, alice, "Viewed", "Yes", "No")

	// scores: voted 2, liked 3, viewed 1
	db.Exec("UPDATE poll SET total_votes = 1 WHERE id = $1", voted)
	db.Exec("UPDATE poll SET likes = 3 WHERE id = $1", liked)
	db.Exec("UPDATE poll SET views = 10 WHERE id = $1", viewed)

	w := httptest.NewRecorder()
	handler.Trending(w, httptest.NewRequest("GET", "/polls/trending", nil))

	testutil.AssertStatus(t, w, http.StatusOK)

	var page models.PollPage
	testutil.AssertJSON(t, w, &page)

	want := []string{liked, voted, viewed}
	if got := pollIDs(page.Polls); !equalIDs(got, want) {
		t.Errorf("Expected trending order %v, got %v", want, got)
	}
	if page.Polls[0].TrendingScore != 3 {
		t.Errorf("Expected top score 3, got %v", page.Polls[0].TrendingScore)
	}
	if !page.IsDone {
		t.Error("Trending feed is a single page")
	}
}

func TestUserPolls(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	handler := NewFeedHandler(db, testutil.GetTestConfig())

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	own, ownOpts := testutil.CreateTestPoll(t, db, alice, "Alice asks", "Yes", "No")
	other, otherOpts := testutil.CreateTestPoll(t, db, bob, "Bob asks", "Yes", "No")
	testutil.CreateTestPoll(t, db, bob, "Bob ignored", "Yes", "No")
	testutil.SetPollCreatedAt(t, db, own, 2000)
	testutil.SetPollCreatedAt(t, db, other, 1000)

	if _, _, err := CastVote(ctx, db, own, ownOpts[0], alice); err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}
	if _, _, err := CastVote(ctx, db, other, otherOpts[0], alice); err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}
	if _, _, err := CastVote(ctx, db, other, otherOpts[1], bob); err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"defaults to both", "", []string{own, other}},
		{"authored only", "?voted=false", []string{own}},
		{"voted only excludes own", "?authored=false", []string{other}},
		{"neither", "?authored=false&voted=false", []string{}},
		{"oldest first", "?sort=oldest", []string{other, own}},
		{"most voted", "?sort=most-voted", []string{other, own}},
		{"least voted", "?sort=least-voted", []string{own, other}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/users/"+alice+"/polls"+tt.query, nil)
			req.SetPathValue("userId", alice)
			w := httptest.NewRecorder()

			handler.UserPolls(w, req)

			testutil.AssertStatus(t, w, http.StatusOK)

			var page models.PollPage
			testutil.AssertJSON(t, w, &page)
			if got := pollIDs(page.Polls); !equalIDs(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if !page.IsDone {
				t.Error("Expected a single page")
			}
		})
	}

	t.Run("bad flag", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/users/"+alice+"/polls?voted=maybe", nil)
		req.SetPathValue("userId", alice)
		w := httptest.NewRecorder()

		handler.UserPolls(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestUserPollsCursor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, db, "alice")
	polls := make([]string, 3)
	for i := range polls {
		polls[i], _ = testutil.CreateTestPoll(t, db, alice, fmt.Sprintf("Q%d", i), "Yes", "No")
		testutil.SetPollCreatedAt(t, db, polls[i], int64(1000*(i+1)))
	}

	opts := UserFeedOptions{Authored: true, Voted: true, Sort: models.SortRecent, Limit: 2}
	first, err := UserPolls(ctx, db, alice, opts)
	if err != nil {
		t.Fatalf("UserPolls failed: %v", err)
	}
	if !equalIDs(pollIDs(first.Polls), []string{polls[2], polls[1]}) || first.IsDone || first.ContinueCursor == nil {
		t.Fatalf("Unexpected first page: %v done=%v", pollIDs(first.Polls), first.IsDone)
	}
	if *first.ContinueCursor != polls[1] {
		t.Errorf("Expected cursor %s, got %s", polls[1], *first.ContinueCursor)
	}

	opts.Cursor = *first.ContinueCursor
	second, err := UserPolls(ctx, db, alice, opts)
	if err != nil {
		t.Fatalf("UserPolls failed: %v", err)
	}
	if !equalIDs(pollIDs(second.Polls), []string{polls[0]}) || !second.IsDone || second.ContinueCursor != nil {
		t.Errorf("Unexpected second page: %v done=%v", pollIDs(second.Polls), second.IsDone)
	}

	opts.Cursor = "unknown"
	restart, err := UserPolls(ctx, db, alice, opts)
	if err != nil {
		t.Fatalf("UserPolls failed: %v", err)
	}
	if !equalIDs(pollIDs(restart.Polls), pollIDs(first.Polls)) {
		t.Errorf("Expected unknown cursor to start over, got %v", pollIDs(restart.Polls))
	}
}

func TestLookupVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewFeedHandler(db, testutil.GetTestConfig())

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	voted, opts := testutil.CreateTestPoll(t, db, alice, "Voted", "Yes", "No")
	skipped, _ := testutil.CreateTestPoll(t, db, alice, "Skipped", "Yes", "No")

	if _, _, err := CastVote(context.Background(), db, voted, opts[1], bob); err != nil {
		t.Fatalf("Failed to vote: %v", err)
	}

	t.Run("lookup", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/votes/lookup", models.UserVotesRequest{
			UserID:  bob,
			PollIDs: []string{voted, skipped},
		}, nil)
		w := httptest.NewRecorder()

		handler.LookupVotes(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)

		var got map[string]*string
		testutil.AssertJSON(t, w, &got)
		if len(got) != 2 {
			t.Fatalf("Expected 2 entries, got %v", got)
		}
		if got[voted] == nil || *got[voted] != opts[1] {
			t.Errorf("Expected %s for voted poll, got %v", opts[1], got[voted])
		}
		if v, ok := got[skipped]; !ok || v != nil {
			t.Errorf("Expected null for skipped poll, got %v (present=%v)", v, ok)
		}
	})

	t.Run("too many ids", func(t *testing.T) {
		ids := make([]string, models.MaxPageSize+1)
		for i := range ids {
			ids[i] = fmt.Sprintf("poll_%d", i)
		}
		req := testutil.MakeRequest("POST", "/votes/lookup", models.UserVotesRequest{UserID: bob, PollIDs: ids}, nil)
		w := httptest.NewRecorder()

		handler.LookupVotes(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("missing user", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/votes/lookup", models.UserVotesRequest{PollIDs: []string{voted}}, nil)
		w := httptest.NewRecorder()

		handler.LookupVotes(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("my vote", func(t *testing.T) {
		req := testutil.AsUser(httptest.NewRequest("GET", "/polls/"+voted+"/my-vote", nil), bob)
		req.SetPathValue("id", voted)
		w := httptest.NewRecorder()

		handler.MyVote(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.UserVoteResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.PollID != voted || resp.OptionID == nil || *resp.OptionID != opts[1] {
			t.Errorf("Unexpected my-vote response: %+v", resp)
		}
	})
}

func TestRandomPoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewFeedHandler(db, testutil.GetTestConfig())

	w := httptest.NewRecorder()
	handler.Random(w, httptest.NewRequest("GET", "/polls/random", nil))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	alice := testutil.CreateTestUser(t, db, "alice")
	pollID, _ := testutil.CreateTestPoll(t, db, alice, "Only one", "Yes", "No")

	w = httptest.NewRecorder()
	handler.Random(w, httptest.NewRequest("GET", "/polls/random", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var poll models.Poll
	testutil.AssertJSON(t, w, &poll)
	if poll.ID != pollID || len(poll.Options) != 2 {
		t.Errorf("Unexpected random poll: %+v", poll)
	}
}

func TestStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	handler := NewFeedHandler(db, testutil.GetTestConfig())

	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	a1, a1Opts := testutil.CreateTestPoll(t, db, alice, "A1", "Yes", "No")
	testutil.CreateTestPoll(t, db, alice, "A2", "Yes", "No")
	b1, b1Opts := testutil.CreateTestPoll(t, db, bob, "B1", "Yes", "No")

	CastVote(ctx, db, a1, a1Opts[0], bob)
	CastVote(ctx, db, a1, a1Opts[1], alice)
	CastVote(ctx, db, b1, b1Opts[0], alice)

	w := httptest.NewRecorder()
	handler.Stats(w, httptest.NewRequest("GET", "/stats", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var all models.PollStats
	testutil.AssertJSON(t, w, &all)
	if all.TotalPolls != 3 || all.TotalVotes != 3 {
		t.Errorf("Expected 3 polls and 3 votes, got %+v", all)
	}

	req := httptest.NewRequest("GET", "/users/"+alice+"/stats", nil)
	req.SetPathValue("userId", alice)
	w = httptest.NewRecorder()
	handler.UserStats(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var mine models.PollStats
	testutil.AssertJSON(t, w, &mine)
	if mine.TotalPolls != 2 || mine.TotalVotes != 2 {
		t.Errorf("Expected alice to have 2 polls and 2 votes, got %+v", mine)
	}
}
