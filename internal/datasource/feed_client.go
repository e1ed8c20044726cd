package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yourusername/edgecheck/internal/config"
)

const feedSourceName = "feed"

// FeedClient implements FeedSource over the JSON feed API
type FeedClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	enabled    bool
}

// NewFeedClient creates a feed client for cfg
func NewFeedClient(httpClient *RateLimitedHTTPClient, cfg config.FeedConfig) *FeedClient {
	return &FeedClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		enabled:    cfg.Enabled,
	}
}

// Name returns the name of the feed
func (c *FeedClient) Name() string {
	return feedSourceName
}

// IsEnabled returns whether the feed is configured and switched on
func (c *FeedClient) IsEnabled() bool {
	return c.enabled && c.baseURL != ""
}

// FetchPredictions retrieves predictions created at or after since
func (c *FeedClient) FetchPredictions(ctx context.Context, since time.Time) ([]PredictionData, error) {
	var predictions []PredictionData
	if err := c.getJSON(ctx, "predictions", since, &predictions); err != nil {
		return nil, err
	}
	return predictions, nil
}

// FetchSettlements retrieves settlements at or after since
func (c *FeedClient) FetchSettlements(ctx context.Context, since time.Time) ([]SettlementData, error) {
	var settlements []SettlementData
	if err := c.getJSON(ctx, "settlements", since, &settlements); err != nil {
		return nil, err
	}
	return settlements, nil
}

func (c *FeedClient) getJSON(ctx context.Context, resource string, since time.Time, out interface{}) error {
	if !c.IsEnabled() {
		return NewDataSourceError(feedSourceName, ErrCodeDisabled, "feed is not enabled", ErrFeedDisabled)
	}

	query := url.Values{}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, resource)
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewDataSourceError(feedSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return NewDataSourceError(feedSourceName, ErrCodeNetworkError, "failed to fetch "+resource, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(feedSourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(feedSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return NewDataSourceError(feedSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(feedSourceName, ErrCodeInvalidData, "failed to parse "+resource, err)
	}
	return nil
}
