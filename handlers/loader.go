// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pollSelect reads polls with the author's current avatar
const pollSelect = `
	SELECT p.id, p.question, p.total_votes, p.dev, p.author_id, p.author_username,
		p.created_at, p.views, p.likes, u.profile_image_url
	FROM poll p
	LEFT JOIN app_user u ON u.user_id = p.author_id
`

func scanPoll(row interface{ Scan(...any) error }) (models.Poll, error) {
	var p models.Poll
	err := row.Scan(&p.ID, &p.Question, &p.TotalVotes, &p.Dev, &p.AuthorID, &p.AuthorUsername,
		&p.CreatedAt, &p.Views, &p.Likes, &p.AuthorProfileImageURL)
	return p, err
}

// queryPolls runs a pollSelect based query and returns polls without options
func queryPolls(ctx context.Context, q queryer, query string, args ...any) ([]models.Poll, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

// attachOptions fills in options, voter ids and derived fields for polls
func attachOptions(ctx context.Context, q queryer, polls []models.Poll) error {
	if len(polls) == 0 {
		return nil
	}

	ids := make([]any, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
	}
	in := db.Placeholders(1, len(ids))

	options, err := loadOptions(ctx, q, in, ids)
	if err != nil {
		return err
	}
	voters, err := loadVoters(ctx, q, in, ids)
	if err != nil {
		return err
	}

	for i := range polls {
		opts := options[polls[i].ID]
		if opts == nil {
			opts = []models.Option{}
		}
		for j := range opts {
			opts[j].VotedUserIDs = voters[opts[j].ID]
			if opts[j].VotedUserIDs == nil {
				opts[j].VotedUserIDs = []string{}
			}
		}
		polls[i].Options = opts
		decorate(&polls[i])
	}
	return nil
}

func loadOptions(ctx context.Context, q queryer, in string, ids []any) (map[string][]models.Option, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, poll_id, text, votes FROM poll_option
		WHERE poll_id IN (`+in+`)
		ORDER BY poll_id, sort_order
	`, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	byPoll := make(map[string][]models.Option)
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Text, &o.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		byPoll[o.PollID] = append(byPoll[o.PollID], o)
	}
	return byPoll, rows.Err()
}

func loadVoters(ctx context.Context, q queryer, in string, ids []any) (map[string][]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT option_id, user_id FROM poll_vote
		WHERE poll_id IN (`+in+`)
		ORDER BY created_at, user_id
	`, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	byOption := make(map[string][]string)
	for rows.Next() {
		var optionID, userID string
		if err := rows.Scan(&optionID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		byOption[optionID] = append(byOption[optionID], userID)
	}
	return byOption, rows.Err()
}

func decorate(p *models.Poll) {
	p.CreatedAgo = humanize.Time(time.UnixMilli(p.CreatedAt))
	p.TrendingScore = models.TrendingScore(p.TotalVotes, p.Likes, p.Views)
}

// loadPoll returns one poll with its options, or ErrPollNotFound
func loadPoll(ctx context.Context, q queryer, pollID string) (*models.Poll, error) {
	p, err := scanPoll(q.QueryRowContext(ctx, pollSelect+" WHERE p.id = $1", pollID))
	if err == sql.ErrNoRows {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}

	polls := []models.Poll{p}
	if err := attachOptions(ctx, q, polls); err != nil {
		return nil, err
	}
	return &polls[0], nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
