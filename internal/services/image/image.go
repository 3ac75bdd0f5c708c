package image

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ai-linebot-go/internal/config"
	"github.com/sirupsen/logrus"
)

// Service represents the image generation service interface
type Service interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client generates images through pollinations.ai, where the prompt URL is
// the image URL. A GET warms the generation so the platform's image fetch
// does not hit a cold prompt.
type Client struct {
	cfg        *config.ImageConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new image generation client
func NewClient(cfg *config.ImageConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Generate returns the image URL for a prompt. A failed prefetch degrades to
// the configured fallback URL rather than an error, matching the bot's
// best-effort behavior.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	imageURL := fmt.Sprintf("%s/prompt/%s", strings.TrimSuffix(c.cfg.BaseURL, "/"), url.PathEscape(prompt))

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("Image prefetch failed, using fallback URL")
		return c.cfg.FallbackURL, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Warn("Image prefetch failed, using fallback URL")
		return c.cfg.FallbackURL, nil
	}

	return imageURL, nil
}
