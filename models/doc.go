// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, options (2-10), dev flag
  - VoteRequest: option_id to vote for (same option again unvotes)
  - UserVotesRequest: batch lookup of one user's votes across polls
  - CreateCommentRequest: comment text (1-500 chars)
  - UpsertUserRequest, UpdateUsernameRequest, UpdateProfileImageRequest
  - AvatarUploadRequest: file name and content type for an S3 upload URL

# Response Types

Mutations answer with a structured result instead of a bare error:

	{"success": false, "error": "Poll must have at least 2 options."}

  - MutationResponse: success/error pair
  - CreatePollResponse: adds poll_id
  - VoteResponse: adds the transition (voted, unvoted, changed) and the
    post-mutation poll snapshot
  - PollPage: {polls, is_done, continue_cursor} for every feed

# Domain Types

  - Poll: question, counters, denormalized author username and the author's
    current avatar joined at read time
  - Option: text and vote counter; voted_user_ids is derived from vote rows
  - User, Comment

All timestamps are unix milliseconds. Poll also carries created_ago, a
humanized age such as "3 hours ago".

# Trending

TrendingScore implements votes*2 + likes + views*0.1.
*/
package models
