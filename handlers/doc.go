// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the store operations and HTTP handlers for the
Pollspree API.

# Store Operations

Every operation is a plain function over *sql.DB so it can be tested
without HTTP:

	pollID, err := handlers.CreatePoll(ctx, db, filter, handlers.PollInput{...})
	action, poll, err := handlers.CastVote(ctx, db, pollID, optionID, userID)

Operations return sentinel errors (ErrPollNotFound, ErrDuplicatePoll, ...)
or a *ValidationError; handlers map them to status codes with statusFor.

# Handler Types

Each handler is a struct with database and config dependencies:

  - PollHandler: create, read and delete polls
  - VotingHandler: vote toggling with Idempotency-Key replay
  - FeedHandler: newest, trending, random and per-user feeds, vote lookups, stats
  - SocialHandler: likes, views and comments
  - UserHandler: profiles, usernames and avatar uploads
  - AccountHandler: account deletion
  - SitemapHandler: sitemap.xml and its stats

# Vote Tallies

Each option's votes counter equals its poll_vote rows and a poll's
total_votes equals the sum over its options. CastVote keeps both in one
transaction:

	no vote         → insert, option +1, poll +1   (voted)
	same option     → delete, option -1, poll -1   (unvoted)
	other option    → move,   old -1, new +1       (changed)

Voter ids shown on options are read from poll_vote rows.

# Authentication

Handlers read the caller from the request context (middleware.UserID). The
router wraps them in middleware.RequireUser or middleware.OptionalUser.
*/
package handlers
