package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/errs"
	"github.com/ai-linebot-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Service represents the web search service interface
type Service interface {
	Search(ctx context.Context, query string, numResults int) ([]models.SearchResult, error)
}

// Client queries the Google Custom Search JSON API.
type Client struct {
	cfg        *config.SearchConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new search client
func NewClient(cfg *config.SearchConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Search returns up to numResults results for a query.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]models.SearchResult, error) {
	const op = "search.Search"

	if c.cfg.APIKey == "" || c.cfg.EngineID == "" {
		return nil, errs.Newf(errs.KindConfigMissing, op, "google search credentials not configured")
	}

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(numResults))

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"query": query,
		"num":   numResults,
	}).Debug("Searching Google")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() != nil {
			return nil, errs.New(errs.KindTimeout, op, err)
		}
		return nil, errs.New(errs.KindUnavailable, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errs.Newf(errs.KindAuthRejected, op, "status %d: %s", resp.StatusCode, body)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errs.Newf(errs.KindRateLimited, op, "status %d: %s", resp.StatusCode, body)
	case resp.StatusCode >= 500:
		return nil, errs.Newf(errs.KindUnavailable, op, "status %d: %s", resp.StatusCode, body)
	case resp.StatusCode != http.StatusOK:
		return nil, errs.Newf(errs.KindUnknown, op, "status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]models.SearchResult, 0, len(result.Items))
	for _, item := range result.Items {
		results = append(results, models.SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}

	return results, nil
}
