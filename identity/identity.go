// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package identity talks to the external identity provider's admin API.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("identity provider secret key is not set")

// Client deletes provider accounts. The zero value is not usable; see New.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// New returns a client for the provider at baseURL. An empty secretKey
// yields a client whose calls fail with ErrNotConfigured.
func New(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// DeleteUser removes the provider account for userID. A 404 from the
// provider counts as success.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if c.secretKey == "" {
		return ErrNotConfigured
	}

	endpoint := c.baseURL + "/v1/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Warn("identity provider user already gone", "user_id", userID)
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to delete provider user: %s", providerMessage(resp))
	}

	slog.Info("identity provider user deleted", "user_id", userID)
	return nil
}

// providerMessage pulls a readable message out of an error response
func providerMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if len(payload.Errors) > 0 && payload.Errors[0].Message != "" {
			return payload.Errors[0].Message
		}
	}
	return resp.Status
}
