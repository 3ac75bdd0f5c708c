package handlers

import (
	"context"
	"strings"
	"sync"

	"github.com/ai-linebot-go/internal/i18n"
	"github.com/ai-linebot-go/internal/middleware"
	"github.com/ai-linebot-go/internal/models"
	"github.com/ai-linebot-go/internal/platform"
	"github.com/ai-linebot-go/pkg/logger"
	"github.com/sirupsen/logrus"
)

// EventPipeline is the top-level orchestrator: it classifies each event,
// gates group participation on mentions, applies per-sender rate limiting,
// and hands admitted requests to the command router. A single event's
// failure never affects its siblings in the same delivery.
type EventPipeline struct {
	mention   *MentionResolver
	limiter   middleware.RateLimiter
	router    *CommandRouter
	sink      platform.ReplySink
	localizer *i18n.Localizer
	metrics   *middleware.Metrics
	logger    *logrus.Logger
}

// NewEventPipeline creates a new event pipeline
func NewEventPipeline(
	mention *MentionResolver,
	limiter middleware.RateLimiter,
	router *CommandRouter,
	sink platform.ReplySink,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *EventPipeline {
	return &EventPipeline{
		mention:   mention,
		limiter:   limiter,
		router:    router,
		sink:      sink,
		localizer: localizer,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleDelivery processes one webhook delivery. Events run concurrently and
// independently; no ordering is guaranteed within or across deliveries.
func (p *EventPipeline) HandleDelivery(ctx context.Context, events []*models.InboundEvent) {
	var wg sync.WaitGroup
	for _, evt := range events {
		evt := evt
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.HandleEvent(ctx, evt); err != nil {
				logger.WithEvent(p.logger, evt.ConversationKey(), evt.SenderID).
					WithError(err).Error("Failed to handle event")
				p.metrics.RecordEventProcessed("error")
			} else {
				p.metrics.RecordEventProcessed("success")
			}
		}()
	}
	wg.Wait()
}

// HandleEvent runs one event through classification, gating, rate limiting
// and dispatch.
func (p *EventPipeline) HandleEvent(ctx context.Context, evt *models.InboundEvent) error {
	p.metrics.RecordEventReceived(string(evt.Source))

	switch evt.Source {
	case models.SourceUser:
		logger.WithEvent(p.logger, evt.SenderID, evt.SenderID).
			WithField("text", evt.Text).Debug("Direct message")
		return p.process(ctx, &Request{Event: evt, Key: evt.SenderID, Text: evt.Text})

	case models.SourceGroup, models.SourceRoom:
		participate, cleaned := p.mention.Resolve(evt)
		if !participate {
			p.logger.WithField("room_id", evt.GroupID).Debug("Not mentioned in group, ignoring message")
			return nil
		}

		logger.WithEvent(p.logger, evt.GroupID, evt.SenderID).
			WithField("text", cleaned).Debug("Mentioned in group")
		return p.process(ctx, &Request{Event: evt, Key: evt.GroupID, Text: cleaned})

	default:
		return nil
	}
}

func (p *EventPipeline) process(ctx context.Context, req *Request) error {
	// A bare mention (or an empty direct message) gets a conversational
	// nudge and consumes no rate budget.
	if strings.TrimSpace(req.Text) == "" {
		return p.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(p.localizer.Default(i18n.MsgYouRang, nil)))
	}

	if !p.limiter.Allow(req.Event.SenderID) {
		p.metrics.RecordRateLimitExceeded()
		return p.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(p.localizer.Default(i18n.MsgRateLimitExceeded, nil)))
	}

	return p.router.Route(ctx, req)
}
