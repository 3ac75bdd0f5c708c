// Package platform adapts the LINE Messaging API to the pipeline's
// normalized event and reply types.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/models"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/sirupsen/logrus"
)

// ReplySink delivers reply descriptors to the platform.
type ReplySink interface {
	Reply(ctx context.Context, replyToken string, replies ...models.Reply) error
	Push(ctx context.Context, to string, replies ...models.Reply) error
}

// LineClient wraps the LINE SDK client and caches the bot's own identity.
type LineClient struct {
	client *linebot.Client
	logger *logrus.Logger

	mu       sync.RWMutex
	identity *models.BotIdentity
}

// NewLineClient creates the platform adapter.
func NewLineClient(cfg *config.LineConfig, logger *logrus.Logger) (*LineClient, error) {
	client, err := linebot.New(cfg.ChannelSecret, cfg.ChannelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create line client: %w", err)
	}

	return &LineClient{
		client: client,
		logger: logger,
	}, nil
}

// FetchIdentity loads the bot's profile for mention matching. On failure the
// identity stays nil and mention checks never match, so the bot goes silent
// in groups rather than replying spuriously.
func (c *LineClient) FetchIdentity(ctx context.Context) {
	info, err := c.client.GetBotInfo().WithContext(ctx).Do()
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch bot identity, group mentions disabled")
		return
	}

	c.mu.Lock()
	c.identity = &models.BotIdentity{
		UserID:      info.UserID,
		BasicID:     info.BasicID,
		DisplayName: info.DisplayName,
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"user_id":      info.UserID,
		"basic_id":     info.BasicID,
		"display_name": info.DisplayName,
	}).Info("Bot identity loaded")
}

// Identity returns the cached bot identity, or nil if the fetch failed.
func (c *LineClient) Identity() *models.BotIdentity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// ParseWebhook validates the request signature and returns the normalized
// text events; non-text events are dropped here.
func (c *LineClient) ParseWebhook(r *http.Request) ([]*models.InboundEvent, error) {
	events, err := c.client.ParseRequest(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook: %w", err)
	}
	return c.normalize(events), nil
}

// ParseUnverified decodes a webhook body without signature validation. Only
// the test route uses this.
func (c *LineClient) ParseUnverified(r *http.Request) ([]*models.InboundEvent, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	var payload struct {
		Events []*linebot.Event `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook body: %w", err)
	}
	return c.normalize(payload.Events), nil
}

func (c *LineClient) normalize(events []*linebot.Event) []*models.InboundEvent {
	out := make([]*models.InboundEvent, 0, len(events))
	for _, event := range events {
		if event.Type != linebot.EventTypeMessage || event.Source == nil {
			continue
		}
		text, ok := event.Message.(*linebot.TextMessage)
		if !ok {
			continue
		}

		evt := &models.InboundEvent{
			SenderID:   event.Source.UserID,
			Text:       text.Text,
			ReplyToken: event.ReplyToken,
		}

		switch event.Source.Type {
		case linebot.EventSourceTypeUser:
			evt.Source = models.SourceUser
		case linebot.EventSourceTypeGroup:
			evt.Source = models.SourceGroup
			evt.GroupID = event.Source.GroupID
		case linebot.EventSourceTypeRoom:
			evt.Source = models.SourceRoom
			evt.GroupID = event.Source.RoomID
		default:
			continue
		}

		if text.Mention != nil {
			for _, m := range text.Mention.Mentionees {
				evt.Mentions = append(evt.Mentions, m.UserID)
			}
		}

		out = append(out, evt)
	}
	return out
}

// Reply sends reply descriptors against a reply token.
func (c *LineClient) Reply(ctx context.Context, replyToken string, replies ...models.Reply) error {
	msgs, err := toSendingMessages(replies)
	if err != nil {
		return err
	}
	if _, err := c.client.ReplyMessage(replyToken, msgs...).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// Push sends reply descriptors to a target identity. Used when the reply
// token was already consumed by an interim message.
func (c *LineClient) Push(ctx context.Context, to string, replies ...models.Reply) error {
	msgs, err := toSendingMessages(replies)
	if err != nil {
		return err
	}
	if _, err := c.client.PushMessage(to, msgs...).WithContext(ctx).Do(); err != nil {
		return fmt.Errorf("failed to push message: %w", err)
	}
	return nil
}

// LookupDisplayName fetches a sender's display name from the platform.
func (c *LineClient) LookupDisplayName(ctx context.Context, userID string) (string, error) {
	profile, err := c.client.GetProfile(userID).WithContext(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.DisplayName, nil
}

func toSendingMessages(replies []models.Reply) ([]linebot.SendingMessage, error) {
	msgs := make([]linebot.SendingMessage, 0, len(replies))
	for _, r := range replies {
		switch r.Kind {
		case models.ReplyText:
			msgs = append(msgs, linebot.NewTextMessage(r.Text))
		case models.ReplyImage:
			msgs = append(msgs, linebot.NewImageMessage(r.ImageURL, r.PreviewURL))
		case models.ReplyAudio:
			msgs = append(msgs, linebot.NewAudioMessage(r.AudioURL, r.DurationMS))
		default:
			return nil, fmt.Errorf("unsupported reply kind: %s", r.Kind)
		}
	}
	return msgs, nil
}
