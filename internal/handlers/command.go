package handlers

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/conversation"
	"github.com/ai-linebot-go/internal/errs"
	"github.com/ai-linebot-go/internal/i18n"
	"github.com/ai-linebot-go/internal/middleware"
	"github.com/ai-linebot-go/internal/models"
	"github.com/ai-linebot-go/internal/platform"
	"github.com/ai-linebot-go/internal/services/ai"
	"github.com/ai-linebot-go/internal/services/image"
	"github.com/ai-linebot-go/internal/services/profile"
	"github.com/ai-linebot-go/internal/services/search"
	"github.com/ai-linebot-go/internal/services/tts"
	"github.com/ai-linebot-go/internal/services/upload"
	"github.com/ai-linebot-go/pkg/markdown"
	"github.com/sirupsen/logrus"
)

// Request carries one admitted event through command dispatch.
type Request struct {
	Event *models.InboundEvent
	// Key is the resolved conversation key: sender ID in direct chat, the
	// group/room ID in shared chat.
	Key string
	// Text is the normalized message (mention stripped, trimmed).
	Text string
}

// IsGroup reports whether the request came from shared chat.
func (r *Request) IsGroup() bool {
	return r.Key != r.Event.SenderID
}

type route struct {
	name   string
	match  func(lower string) bool
	handle func(ctx context.Context, req *Request) error
}

// CommandRouter maps a normalized message to a handler. Routes are evaluated
// in priority order; the first match wins.
type CommandRouter struct {
	cfg       *config.Config
	store     conversation.Store
	aiService ai.Service
	images    image.Service
	searcher  search.Service
	speech    tts.Service
	uploader  upload.Service
	profiles  profile.Service
	sink      platform.ReplySink
	localizer *i18n.Localizer
	metrics   *middleware.Metrics
	logger    *logrus.Logger
	routes    []route
}

// NewCommandRouter creates a new command router
func NewCommandRouter(
	cfg *config.Config,
	store conversation.Store,
	aiService ai.Service,
	images image.Service,
	searcher search.Service,
	speech tts.Service,
	uploader upload.Service,
	profiles profile.Service,
	sink platform.ReplySink,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *CommandRouter {
	r := &CommandRouter{
		cfg:       cfg,
		store:     store,
		aiService: aiService,
		images:    images,
		searcher:  searcher,
		speech:    speech,
		uploader:  uploader,
		profiles:  profiles,
		sink:      sink,
		localizer: localizer,
		metrics:   metrics,
		logger:    logger,
	}

	r.routes = []route{
		{
			name:   "reset",
			match:  func(lower string) bool { return lower == "/reset" },
			handle: r.handleReset,
		},
		{
			name:   "help",
			match:  func(lower string) bool { return strings.HasPrefix(lower, "/help") },
			handle: r.handleHelp,
		},
		{
			name:   "image",
			match:  func(lower string) bool { return strings.HasPrefix(lower, "/image ") },
			handle: r.handleImage,
		},
		{
			name:   "google",
			match:  func(lower string) bool { return strings.HasPrefix(lower, "/google ") },
			handle: r.handleGoogle,
		},
		{
			name:   "tts",
			match:  func(lower string) bool { return strings.HasPrefix(lower, "/tts ") },
			handle: r.handleTTS,
		},
		{
			name:   "chat",
			match:  func(lower string) bool { return true },
			handle: r.handleChat,
		},
	}

	return r
}

// Route dispatches an admitted request to the first matching handler.
func (r *CommandRouter) Route(ctx context.Context, req *Request) error {
	lower := strings.ToLower(req.Text)
	for _, rt := range r.routes {
		if rt.match(lower) {
			r.metrics.RecordCommandExecuted(rt.name)
			return rt.handle(ctx, req)
		}
	}
	return nil // unreachable, chat matches everything
}

func (r *CommandRouter) handleReset(ctx context.Context, req *Request) error {
	r.store.Reset(req.Key)
	return r.sink.Reply(ctx, req.Event.ReplyToken,
		models.TextReply(r.localizer.Default(i18n.MsgHistoryCleared, nil)))
}

func (r *CommandRouter) handleHelp(ctx context.Context, req *Request) error {
	topic := strings.ToLower(strings.TrimSpace(req.Text[len("/help"):]))
	return r.sink.Reply(ctx, req.Event.ReplyToken, models.TextReply(helpText(topic)))
}

func (r *CommandRouter) handleImage(ctx context.Context, req *Request) error {
	prompt := strings.TrimSpace(req.Text[len("/image "):])
	if prompt == "" {
		return r.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(r.localizer.Default(i18n.MsgImageUsage, nil)))
	}

	r.logger.WithField("prompt", prompt).Info("Generating image")

	imageURL, err := r.images.Generate(ctx, prompt)
	if err != nil {
		r.logger.WithError(err).Error("Image generation failed")
		r.metrics.RecordCollaboratorError("image", errs.KindOf(err).String())
		return r.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(r.localizer.Default(i18n.MsgImageFailed, nil)))
	}

	caption := r.localizer.Default(i18n.MsgImageCaption, map[string]interface{}{"Prompt": prompt})
	return r.sink.Reply(ctx, req.Event.ReplyToken,
		models.TextReply(caption),
		models.ImageReply(imageURL, imageURL))
}

var numFlagRe = regexp.MustCompile(`-n\s+(\d+)`)

func (r *CommandRouter) handleGoogle(ctx context.Context, req *Request) error {
	args := strings.TrimSpace(req.Text[len("/google "):])

	num := r.cfg.Search.DefaultResults
	if m := numFlagRe.FindStringSubmatch(args); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n < 1 {
			n = 1
		}
		if n > r.cfg.Search.MaxResults {
			n = r.cfg.Search.MaxResults
		}
		num = n
		args = strings.TrimSpace(numFlagRe.ReplaceAllString(args, ""))
	}

	if args == "" {
		return r.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(r.localizer.Default(i18n.MsgSearchUsage, nil)))
	}

	results, err := r.searcher.Search(ctx, args, num)
	if err != nil {
		r.logger.WithError(err).WithField("query", args).Error("Search failed")
		r.metrics.RecordCollaboratorError("search", errs.KindOf(err).String())
		return r.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(r.searchErrorMessage(err)))
	}

	if len(results) == 0 {
		return r.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(r.localizer.Default(i18n.MsgSearchNoResults, nil)))
	}

	var sb strings.Builder
	sb.WriteString(r.localizer.Default(i18n.MsgSearchHeader, map[string]interface{}{"Query": args}))
	sb.WriteString("\n\n")
	for i, item := range results {
		fmt.Fprintf(&sb, "%d. %s\n%s\n%s\n\n", i+1, item.Title, item.Link, item.Snippet)
	}

	return r.sink.Reply(ctx, req.Event.ReplyToken,
		models.TextReply(strings.TrimSpace(sb.String())))
}

func (r *CommandRouter) searchErrorMessage(err error) string {
	switch errs.KindOf(err) {
	case errs.KindConfigMissing:
		return r.localizer.Default(i18n.MsgSearchNotConfig, nil)
	case errs.KindTimeout:
		return r.localizer.Default(i18n.MsgSearchTimeout, nil)
	default:
		return r.localizer.Default(i18n.MsgSearchFailed, nil)
	}
}

var (
	voiceFlagRe = regexp.MustCompile(`-v\s+(\S+)`)
	langFlagRe  = regexp.MustCompile(`-l\s+(\S+)`)
)

func (r *CommandRouter) handleTTS(ctx context.Context, req *Request) error {
	args := strings.TrimSpace(req.Text[len("/tts "):])

	voice := r.cfg.TTS.DefaultVoice
	language := ""
	text := args

	if m := voiceFlagRe.FindStringSubmatch(args); m != nil {
		voice = m[1]
		text = voiceFlagRe.ReplaceAllString(text, "")
	}
	if m := langFlagRe.FindStringSubmatch(args); m != nil {
		language = m[1]
		text = langFlagRe.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)

	if text == "" {
		return r.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(r.localizer.Default(i18n.MsgTTSUsage, nil)))
	}

	voiceInfo := voice
	if language != "" {
		voiceInfo = voice + ", " + language
	}

	r.logger.WithFields(logrus.Fields{
		"voice":    voice,
		"language": language,
	}).Info("Converting text to speech")

	// The interim reply consumes the reply token; the audio and any later
	// failure go out as pushes.
	if err := r.sink.Reply(ctx, req.Event.ReplyToken,
		models.TextReply(r.localizer.Default(i18n.MsgTTSWait, map[string]interface{}{"Voice": voiceInfo}))); err != nil {
		return err
	}

	target := req.Event.PushTarget()

	audio, err := r.speech.Synthesize(ctx, text, voice, language)
	if err != nil {
		r.logger.WithError(err).Error("Speech synthesis failed")
		r.metrics.RecordCollaboratorError("tts", errs.KindOf(err).String())
		return r.sink.Push(ctx, target, models.TextReply(r.ttsErrorMessage(err)))
	}

	audioURL, err := r.uploader.UploadAudio(ctx, audio)
	if err != nil {
		r.logger.WithError(err).Error("Audio upload failed")
		r.metrics.RecordCollaboratorError("upload", errs.KindOf(err).String())
		return r.sink.Push(ctx, target, models.TextReply(r.ttsErrorMessage(err)))
	}

	return r.sink.Push(ctx, target, models.AudioReply(audioURL, estimateDurationMS(text, r.cfg.TTS.EstimatedWPM)))
}

func (r *CommandRouter) ttsErrorMessage(err error) string {
	switch errs.KindOf(err) {
	case errs.KindConfigMissing:
		return r.localizer.Default(i18n.MsgTTSNotConfigured, nil)
	case errs.KindUnavailable:
		return r.localizer.Default(i18n.MsgTTSUploadFailed, nil)
	case errs.KindTimeout:
		return r.localizer.Default(i18n.MsgTTSTimeout, nil)
	case errs.KindAuthRejected:
		return r.localizer.Default(i18n.MsgAuthRejected, nil)
	case errs.KindRateLimited:
		return r.localizer.Default(i18n.MsgChatRateLimited, nil)
	default:
		return r.localizer.Default(i18n.MsgTTSFailed, nil)
	}
}

// estimateDurationMS guesses playback length from word count; the platform
// requires a duration and the synthesis API does not report one.
func estimateDurationMS(text string, wpm int) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) / float64(wpm) * 60 * 1000))
}

func (r *CommandRouter) handleChat(ctx context.Context, req *Request) error {
	entry := req.Text
	if req.IsGroup() {
		// Shared history needs attribution so the model can tell speakers
		// apart.
		name := r.profiles.DisplayName(ctx, req.Event.SenderID)
		entry = fmt.Sprintf("UserID %s(%s) says: %s", req.Event.SenderID, name, req.Text)
	}

	r.store.Append(req.Key, models.RoleUser, entry)

	start := time.Now()
	reply, err := r.aiService.ChatCompletion(ctx, r.store.History(req.Key))
	if err != nil {
		r.metrics.RecordAIRequest("error", time.Since(start))
		r.logger.WithError(err).WithFields(logrus.Fields{
			"room_id":   req.Key,
			"sender_id": req.Event.SenderID,
		}).Error("Chat completion failed")
		r.metrics.RecordCollaboratorError("ai", errs.KindOf(err).String())
		return r.sink.Reply(ctx, req.Event.ReplyToken,
			models.TextReply(r.chatErrorMessage(err)))
	}

	r.metrics.RecordAIRequest("success", time.Since(start))
	r.store.Append(req.Key, models.RoleAssistant, reply)

	return r.sink.Reply(ctx, req.Event.ReplyToken,
		models.TextReply(markdown.ToPlainText(reply)))
}

func (r *CommandRouter) chatErrorMessage(err error) string {
	switch errs.KindOf(err) {
	case errs.KindConfigMissing:
		return r.localizer.Default(i18n.MsgChatNotConfigured, nil)
	case errs.KindTimeout:
		return r.localizer.Default(i18n.MsgChatTimeout, nil)
	case errs.KindRateLimited:
		return r.localizer.Default(i18n.MsgChatRateLimited, nil)
	case errs.KindUnavailable:
		return r.localizer.Default(i18n.MsgChatUnavailable, nil)
	case errs.KindAuthRejected:
		return r.localizer.Default(i18n.MsgAuthRejected, nil)
	default:
		return r.localizer.Default(i18n.MsgChatError, nil)
	}
}
