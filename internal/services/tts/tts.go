package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/errs"
	"github.com/sirupsen/logrus"
)

// Service represents the speech synthesis service interface
type Service interface {
	Synthesize(ctx context.Context, text, voice, language string) ([]byte, error)
}

// Client synthesizes speech through the Speechify API. Output is decoded mp3
// bytes ready for upload.
type Client struct {
	cfg        *config.TTSConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new speech synthesis client
func NewClient(cfg *config.TTSConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Synthesize converts text to speech with the given voice. Language is
// optional and omitted from the request when empty.
func (c *Client) Synthesize(ctx context.Context, text, voice, language string) ([]byte, error) {
	const op = "tts.Synthesize"

	if c.cfg.APIKey == "" {
		return nil, errs.Newf(errs.KindConfigMissing, op, "SPEECHIFY_API_KEY is not set")
	}

	reqBody := map[string]string{
		"input":        text,
		"voice_id":     voice,
		"audio_format": "mp3",
	}
	if language != "" {
		reqBody["language"] = language
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/v1/audio/speech"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.WithFields(logrus.Fields{
		"voice":    voice,
		"language": language,
		"chars":    len(text),
	}).Debug("Synthesizing speech")

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
		AudioData string `json:"audio_data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.AudioData == "" {
		return nil, errs.Newf(errs.KindUnavailable, op, "empty audio data")
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}

	return audio, nil
}
