// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/pollspree/db"
	"github.com/danielhkuo/pollspree/models"
)

// decrement floors a counter at zero on both drivers
const decrement = "CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END"

// CastVote applies one vote request for userID and returns the resulting
// transition with the updated poll.
//
// No vote yet: the vote is recorded. Same option again: the vote is removed.
// Another option: the vote moves and total_votes is unchanged.
func CastVote(ctx context.Context, conn *sql.DB, pollID, optionID, userID string) (models.VoteAction, *models.Poll, error) {
	var action models.VoteAction
	var snapshot *models.Poll

	err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM poll_option WHERE id = $1 AND poll_id = $2
		`, optionID, pollID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrOptionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query option: %w", err)
		}

		var current string
		err = tx.QueryRowContext(ctx, `
			SELECT option_id FROM poll_vote WHERE poll_id = $1 AND user_id = $2
		`, pollID, userID).Scan(&current)

		switch {
		case err == sql.ErrNoRows:
			action = models.VoteCast
			err = firstVote(ctx, tx, pollID, optionID, userID)
		case err != nil:
			return fmt.Errorf("failed to query vote: %w", err)
		case current == optionID:
			action = models.VoteRemoved
			err = removeVote(ctx, tx, pollID, optionID, userID)
		default:
			action = models.VoteChanged
			err = changeVote(ctx, tx, pollID, current, optionID, userID)
		}
		if err != nil {
			return err
		}

		snapshot, err = loadPoll(ctx, tx, pollID)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return action, snapshot, nil
}

func firstVote(ctx context.Context, tx *sql.Tx, pollID, optionID, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO poll_vote (poll_id, user_id, option_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, pollID, userID, optionID, nowMillis())
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE poll_option SET votes = votes + 1 WHERE id = $1", optionID); err != nil {
		return fmt.Errorf("failed to increment option: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE poll SET total_votes = total_votes + 1 WHERE id = $1", pollID); err != nil {
		return fmt.Errorf("failed to increment poll: %w", err)
	}
	return nil
}

func removeVote(ctx context.Context, tx *sql.Tx, pollID, optionID, userID string) error {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM poll_vote WHERE poll_id = $1 AND user_id = $2 AND option_id = $3
	`, pollID, userID, optionID)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE poll_option SET votes = "+fmt.Sprintf(decrement, "votes")+" WHERE id = $1", optionID); err != nil {
		return fmt.Errorf("failed to decrement option: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE poll SET total_votes = "+fmt.Sprintf(decrement, "total_votes")+" WHERE id = $1", pollID); err != nil {
		return fmt.Errorf("failed to decrement poll: %w", err)
	}
	return nil
}

func changeVote(ctx context.Context, tx *sql.Tx, pollID, fromOptionID, toOptionID, userID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE poll_vote SET option_id = $1
		WHERE poll_id = $2 AND user_id = $3 AND option_id = $4
	`, toOptionID, pollID, userID, fromOptionID)
	if err != nil {
		return fmt.Errorf("failed to move vote: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE poll_option SET votes = "+fmt.Sprintf(decrement, "votes")+" WHERE id = $1", fromOptionID); err != nil {
		return fmt.Errorf("failed to decrement option: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE poll_option SET votes = votes + 1 WHERE id = $1", toOptionID); err != nil {
		return fmt.Errorf("failed to increment option: %w", err)
	}
	return nil
}

// expectOneRow turns a lost race on the vote row into ErrConflict
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}
