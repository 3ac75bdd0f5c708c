package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/errs"
	"github.com/ai-linebot-go/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Service represents the chat completion service interface
type Service interface {
	ChatCompletion(ctx context.Context, history []models.Message) (string, error)
}

// Client calls an OpenAI-compatible chat completion endpoint. Requests are
// sent once; a failed call surfaces as a classified error and is never
// retried here.
type Client struct {
	cfg        *config.AIConfig
	httpClient *http.Client
	pacer      *rate.Limiter
	logger     *logrus.Logger
}

// NewClient creates a new chat completion client
func NewClient(cfg *config.AIConfig, logger *logrus.Logger) *Client {
	pacer := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		pacer = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		pacer:      pacer,
		logger:     logger,
	}
}

// ChatCompletion sends the system instruction plus bounded history and
// returns the generated text.
func (c *Client) ChatCompletion(ctx context.Context, history []models.Message) (string, error) {
	const op = "ai.ChatCompletion"

	if c.cfg.APIKey == "" {
		return "", errs.Newf(errs.KindConfigMissing, op, "GROQ_API_KEY is not set")
	}

	// Client-side pacing so a burst of events does not trip the provider's
	// own limits.
	if err := c.pacer.Wait(ctx); err != nil {
		return "", errs.New(errs.KindTimeout, op, err)
	}

	messages := make([]models.Message, 0, len(history)+1)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: c.cfg.SystemPrompt})
	messages = append(messages, history...)

	reqBody := map[string]interface{}{
		"model":       c.cfg.Model,
		"messages":    messages,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(c.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.WithFields(logrus.Fields{
		"model":    c.cfg.Model,
		"messages": len(messages),
	}).Debug("Sending chat completion request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() != nil {
			return "", errs.New(errs.KindTimeout, op, err)
		}
		return "", errs.New(errs.KindUnavailable, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Error("Chat completion request failed")
		return "", classifyStatus(op, resp.StatusCode, body)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error.Message != "" {
		return "", errs.Newf(errs.KindUnavailable, op, "provider error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", errs.Newf(errs.KindUnavailable, op, "empty completion")
	}

	return result.Choices[0].Message.Content, nil
}

func classifyStatus(op string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.Newf(errs.KindAuthRejected, op, "status %d: %s", status, body)
	case status == http.StatusTooManyRequests:
		return errs.Newf(errs.KindRateLimited, op, "status %d: %s", status, body)
	case status >= 500:
		return errs.Newf(errs.KindUnavailable, op, "status %d: %s", status, body)
	default:
		return errs.Newf(errs.KindUnknown, op, "status %d: %s", status, body)
	}
}
