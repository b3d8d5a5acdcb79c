// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Pollspree API.

# Route Registration

NewRouter returns the mux wrapped in CORS handling:

	handler := router.NewRouter(db, cfg, router.Dependencies{})

Zero-valued Dependencies fields are built from cfg: the embedded text
filter, an HS256 token verifier, the identity provider client and the SQL
idempotency store. Avatar uploads are only served when Avatars is set.

# Endpoints

Health:

	GET /health

Polls (writes require a bearer token):

	POST   /polls               - Create poll
	GET    /polls/{id}          - Poll with options
	DELETE /polls/{id}          - Delete own poll
	POST   /polls/{id}/vote     - Vote, unvote or change vote (Idempotency-Key aware)
	GET    /polls/{id}/my-vote  - Caller's vote

Feeds:

	GET  /polls                 - Newest first, cursor paginated
	GET  /polls/trending        - Top 50 by trending score
	GET  /polls/random          - One random poll
	GET  /users/{userId}/polls  - Authored and/or voted polls
	GET  /users/{userId}/stats  - Poll and vote totals for an author
	GET  /stats                 - Site totals
	POST /votes/lookup          - Batch vote lookup

Social:

	POST   /polls/{id}/like      - Toggle like
	GET    /polls/{id}/like      - Like status (anonymous allowed)
	POST   /polls/{id}/view      - Count a view
	GET    /polls/{id}/comments  - Comments, newest first
	POST   /polls/{id}/comments  - Add comment
	DELETE /comments/{id}        - Delete own comment

Users:

	POST   /users                    - Create or update own profile
	GET    /users                    - All usernames
	GET    /users/me                 - Own profile
	PUT    /users/me/username        - Rename
	PUT    /users/me/profile-image   - Set avatar
	POST   /users/me/avatar-upload   - Presigned avatar upload
	DELETE /users/me                 - Delete account
	GET    /usernames/{username}     - Profile by username

Sitemap:

	GET /sitemap.xml
	GET /sitemap/stats
*/
package router
