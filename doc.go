// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Pollspree API server.

Pollspree is a community polling service: signed-in users post
multiple-choice polls, vote (tapping the same option again takes the vote
back), like, comment and browse newest, trending and per-user feeds.

# Starting the Server

	DATABASE_URL=pollspree.db AUTH_JWT_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

A .env file in the working directory is read for anything not already set.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file or PostgreSQL connection string
  - AUTH_JWT_SECRET (--jwt-secret): HS256 secret for session tokens

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - IDENTITY_SECRET_KEY, IDENTITY_API_URL: identity provider used on account deletion
  - REDIS_URL (--redis): store vote idempotency records in Redis instead of SQL
  - AVATAR_BUCKET, AWS_REGION: enable presigned S3 avatar uploads
  - SITE_BASE_URL (--site): public URL used in sitemap.xml
  - CORS_ORIGINS (--origins): comma separated allowed origins (default: *)

# Architecture

  - handlers: store operations and HTTP handlers
  - router: route definitions using Go 1.22+ routing
  - middleware: logging, CORS, bearer authentication, JSON helpers
  - models: request, response and domain types
  - auth: session token verification and id generation
  - db: connections, schema and transactions
  - cliparse: configuration parsing
  - textfilter, username: content and username rules
  - idempotency: vote replay records (SQL or Redis)
  - identity: identity provider client
  - avatars: S3 presigned uploads
  - sitemap: sitemap.xml generation
*/
package main
