// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/danielhkuo/pollspree/cliparse"
	"github.com/danielhkuo/pollspree/middleware"
	"github.com/danielhkuo/pollspree/models"
	"github.com/danielhkuo/pollspree/sitemap"
)

type SitemapHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewSitemapHandler(db *sql.DB, cfg cliparse.Config) *SitemapHandler {
	return &SitemapHandler{db: db, cfg: cfg}
}

// Sitemap handles GET /sitemap.xml
func (h *SitemapHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	users, err := ListUsers(r.Context(), h.db)
	if err != nil {
		writeError(w, err, "failed to list users for sitemap")
		return
	}

	profiles := make([]sitemap.Profile, len(users))
	for i, u := range users {
		profiles[i] = sitemap.Profile{Username: u.Username, CreatedAt: u.CreatedAt}
	}

	doc, err := sitemap.Generate(h.cfg.SiteBaseURL, profiles, time.Now())
	if err != nil {
		writeError(w, err, "failed to generate sitemap")
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// Stats handles GET /sitemap/stats
func (h *SitemapHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var stats models.SitemapStats
	err := h.db.QueryRowContext(r.Context(), `
		SELECT (SELECT COUNT(*) FROM app_user), (SELECT COUNT(*) FROM poll)
	`).Scan(&stats.TotalUsers, &stats.TotalPolls)
	if err != nil {
		writeError(w, err, "failed to count sitemap entries")
		return
	}

	stats.TotalURLs = sitemap.URLCount(stats.TotalUsers)
	stats.LastGenerated = sitemap.FormatTime(time.Now())
	middleware.JSONResponse(w, http.StatusOK, stats)
}
