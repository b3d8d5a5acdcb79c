// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Precedence

CLI flags win over environment variables, which win over a .env file in
the working directory. The .env file is optional and never overrides a
variable that is already set.

# CLI Flags

	-p             Server port
	-d             Database URL
	-t             Database type (sqlite or postgres)
	-redis         Redis URL for vote idempotency records
	-site          Public site URL used in the sitemap
	-origins       Comma separated CORS origins
	-jwt-secret    Session token secret
	-identity-key  Identity provider secret key

# Environment Variables

	PORT                 → -p (default 3318)
	DATABASE_URL         → -d (required)
	DATABASE_TYPE        → -t (default sqlite)
	AUTH_JWT_SECRET      → -jwt-secret (required)
	IDENTITY_SECRET_KEY  → -identity-key
	IDENTITY_API_URL     (default https://api.clerk.com)
	REDIS_URL            → -redis
	AVATAR_BUCKET        S3 bucket for profile images
	AWS_REGION           (default us-east-1)
	SITE_BASE_URL        → -site (default https://pollspree.com)
	CORS_ORIGINS         → -origins (default *)

Without IDENTITY_SECRET_KEY account deletion still removes local data but
reports a failure for the identity provider step. Without AVATAR_BUCKET the
upload URL endpoint answers 501.
*/
package cliparse
