// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package sitemap renders the public sitemap.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"time"
)

const namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// TimeLayout matches JavaScript's Date.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Profile is a user page to list.
type Profile struct {
	Username  string
	CreatedAt int64 // unix ms
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Generate returns the sitemap document: the homepage followed by one
// entry per profile.
func Generate(baseURL string, profiles []Profile, now time.Time) ([]byte, error) {
	set := urlSet{
		XMLNS: namespace,
		URLs: []entry{{
			Loc:        baseURL + "/",
			LastMod:    FormatTime(now),
			ChangeFreq: "daily",
			Priority:   "1.0",
		}},
	}

	for _, p := range profiles {
		set.URLs = append(set.URLs, entry{
			Loc:        baseURL + "/users/" + url.PathEscape(p.Username),
			LastMod:    FormatTime(time.UnixMilli(p.CreatedAt)),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// URLCount is the number of entries Generate emits for n profiles.
func URLCount(n int) int {
	return n + 1
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
