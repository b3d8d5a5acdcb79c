// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/pollspree/auth"
	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/handlers"
	"github.com/danielhkuo/pollspree/idempotency"
	"github.com/danielhkuo/pollspree/identity"
	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/textfilter"
)

// Dependencies are the collaborators handlers need beyond the database.
// Nil fields get defaults built from cfg; Avatars stays nil when unset.
type Dependencies struct {
	Filter      *textfilter.Filter
	Verifier    middleware.TokenVerifier
	Identity    handlers.IdentityProvider
	Idempotency idempotency.Store
	Avatars     handlers.AvatarUploader
}

func (d *Dependencies) fill(db *sql.DB, cfg cliparse.Config) {
	if d.Filter == nil {
		d.Filter = textfilter.Default()
	}
	if d.Verifier == nil {
		d.Verifier = auth.NewVerifier(cfg.JWTSecret)
	}
	if d.Identity == nil {
		d.Identity = identity.New(cfg.IdentityAPIURL, cfg.IdentitySecretKey)
	}
	if d.Idempotency == nil {
		d.Idempotency = idempotency.NewSQLStore(db, idempotency.DefaultTTL)
	}
}

func NewRouter(db *sql.DB, cfg cliparse.Config, deps Dependencies) http.Handler {
	deps.fill(db, cfg)
	mux := http.NewServeMux()

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(db, cfg, deps.Filter)
	votingHandler := handlers.NewVotingHandler(db, cfg, deps.Idempotency)
	feedHandler := handlers.NewFeedHandler(db, cfg)
	socialHandler := handlers.NewSocialHandler(db, cfg, deps.Filter)
	userHandler := handlers.NewUserHandler(db, cfg, deps.Filter, deps.Avatars)
	accountHandler := handlers.NewAccountHandler(db, cfg, deps.Identity)
	sitemapHandler := handlers.NewSitemapHandler(db, cfg)

	public := middleware.WithLogging
	user := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireUser(deps.Verifier, h))
	}
	optional := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.OptionalUser(deps.Verifier, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Polls
	mux.HandleFunc("POST /polls", user(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls/{id}", public(pollHandler.GetPoll))
	mux.HandleFunc("DELETE /polls/{id}", user(pollHandler.DeletePoll))
	mux.HandleFunc("POST /polls/{id}/vote", user(votingHandler.Vote))

	// Feeds
	mux.HandleFunc("GET /polls", public(feedHandler.ListPolls))
	mux.HandleFunc("GET /polls/trending", public(feedHandler.Trending))
	mux.HandleFunc("GET /polls/random", public(feedHandler.Random))
	mux.HandleFunc("GET /polls/{id}/my-vote", user(feedHandler.MyVote))
	mux.HandleFunc("POST /votes/lookup", public(feedHandler.LookupVotes))
	mux.HandleFunc("GET /stats", public(feedHandler.Stats))
	mux.HandleFunc("GET /users/{userId}/polls", public(feedHandler.UserPolls))
	mux.HandleFunc("GET /users/{userId}/stats", public(feedHandler.UserStats))

	// Likes, views and comments
	mux.HandleFunc("POST /polls/{id}/like", user(socialHandler.ToggleLike))
	mux.HandleFunc("GET /polls/{id}/like", optional(socialHandler.LikeStatus))
	mux.HandleFunc("POST /polls/{id}/view", public(socialHandler.RecordView))
	mux.HandleFunc("GET /polls/{id}/comments", public(socialHandler.ListComments))
	mux.HandleFunc("POST /polls/{id}/comments", user(socialHandler.CreateComment))
	mux.HandleFunc("DELETE /comments/{id}", user(socialHandler.DeleteComment))

	// Users
	mux.HandleFunc("POST /users", user(userHandler.Upsert))
	mux.HandleFunc("GET /users", public(userHandler.List))
	mux.HandleFunc("GET /users/me", user(userHandler.Me))
	mux.HandleFunc("PUT /users/me/username", user(userHandler.UpdateUsername))
	mux.HandleFunc("PUT /users/me/profile-image", user(userHandler.UpdateProfileImage))
	mux.HandleFunc("POST /users/me/avatar-upload", user(userHandler.AvatarUpload))
	mux.HandleFunc("DELETE /users/me", user(accountHandler.DeleteAccount))
	mux.HandleFunc("GET /usernames/{username}", public(userHandler.ByUsername))

	// Sitemap
	mux.HandleFunc("GET /sitemap.xml", public(sitemapHandler.Sitemap))
	mux.HandleFunc("GET /sitemap/stats", public(sitemapHandler.Stats))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pollspree API v1"))
	})

	return middleware.CORS(cfg.CORSOrigins)(mux)
}
