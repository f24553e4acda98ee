// Package campaign checks referral campaign status against the marketing
// service.
package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/boostbuddy/boostline/internal/config"
)

// Client implements referral.CampaignChecker.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a Client from config.
func NewClient(log *slog.Logger, cfg config.CampaignConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      log.With(slog.String("service", "campaign")),
	}
}

// IsActive reports whether the campaign exists and is running. When no
// marketing service is configured every campaign is treated as active.
func (c *Client) IsActive(ctx context.Context, campaignCode string) (bool, error) {
	if c.baseURL == "" {
		return true, nil
	}
	endpoint := fmt.Sprintf("%s/campaigns/%s/status", c.baseURL, campaignCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("campaign status: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		c.logger.Debug("campaign not found", slog.String("campaign", campaignCode))
		return false, nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("campaign status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("decode campaign status: %w", err)
	}
	return payload.Active, nil
}
