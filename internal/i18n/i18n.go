package i18n

import (
	"encoding/json"
	"fmt"

	"github.com/ai-linebot-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range cfg.Languages {
		if _, err := bundle.LoadMessageFile(fmt.Sprintf("%s/%s.json", cfg.Directory, lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Default returns a message in the configured default language.
func (l *Localizer) Default(messageID string, data map[string]interface{}) string {
	return l.Get(l.defaultLanguage, messageID, data)
}

// Message IDs
const (
	MsgYouRang           = "you_rang"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgHistoryCleared    = "history_cleared"
	MsgChatError         = "chat_error"
	MsgChatNotConfigured = "chat_not_configured"
	MsgChatTimeout       = "chat_timeout"
	MsgChatRateLimited   = "chat_rate_limited"
	MsgChatUnavailable   = "chat_unavailable"
	MsgAuthRejected      = "auth_rejected"
	MsgImageUsage        = "image_usage"
	MsgImageCaption      = "image_caption"
	MsgImageFailed       = "image_failed"
	MsgSearchUsage       = "search_usage"
	MsgSearchHeader      = "search_header"
	MsgSearchNoResults   = "search_no_results"
	MsgSearchNotConfig   = "search_not_configured"
	MsgSearchTimeout     = "search_timeout"
	MsgSearchFailed      = "search_failed"
	MsgTTSUsage          = "tts_usage"
	MsgTTSWait           = "tts_wait"
	MsgTTSNotConfigured  = "tts_not_configured"
	MsgTTSUploadFailed   = "tts_upload_failed"
	MsgTTSTimeout        = "tts_timeout"
	MsgTTSFailed         = "tts_failed"
)
