package handlers

import (
	"strings"

	"github.com/ai-linebot-go/internal/models"
)

// MentionResolver decides whether a group/room message is addressed to the
// bot and strips the mention from the text. Two rules, either alone suffices:
//
//  1. the structured mention list contains the bot's user ID
//  2. the raw text contains "@<display name>" (case-insensitive substring)
//
// Rule 2 exists for clients that cannot produce structured mentions. It is a
// deliberately loose heuristic: a display name that happens to be a common
// word will trigger false positives. Kept isolated here so it can be tuned
// without touching the pipeline.
type MentionResolver struct {
	identity func() *models.BotIdentity
}

// NewMentionResolver creates a resolver reading the bot identity through
// identity, which may return nil while the startup fetch has not succeeded.
func NewMentionResolver(identity func() *models.BotIdentity) *MentionResolver {
	return &MentionResolver{identity: identity}
}

// Resolve reports whether the bot participates in the event and, if so, the
// message text with the first textual mention stripped.
func (r *MentionResolver) Resolve(evt *models.InboundEvent) (bool, string) {
	bot := r.identity()
	if bot == nil {
		// Identity fetch failed: fail toward silence.
		return false, ""
	}

	mentioned := false
	for _, id := range evt.Mentions {
		if id == bot.UserID {
			mentioned = true
			break
		}
	}

	tag := "@" + bot.DisplayName
	if strings.Contains(strings.ToLower(evt.Text), strings.ToLower(tag)) {
		mentioned = true
	}

	if !mentioned {
		return false, ""
	}

	return true, stripFirstFold(evt.Text, tag)
}

// stripFirstFold removes the first case-insensitive occurrence of needle and
// trims the surrounding whitespace.
func stripFirstFold(text, needle string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(needle))
	if idx < 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:idx] + text[idx+len(needle):])
}
