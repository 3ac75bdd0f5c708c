package handlers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/conversation"
	"github.com/ai-linebot-go/internal/i18n"
	"github.com/ai-linebot-go/internal/middleware"
	"github.com/ai-linebot-go/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type sinkCall struct {
	Target  string
	Replies []models.Reply
}

type fakeSink struct {
	mu      sync.Mutex
	Err     error
	Replies []sinkCall
	Pushes  []sinkCall
}

func (s *fakeSink) Reply(ctx context.Context, replyToken string, replies ...models.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Replies = append(s.Replies, sinkCall{Target: replyToken, Replies: replies})
	return s.Err
}

func (s *fakeSink) Push(ctx context.Context, to string, replies ...models.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pushes = append(s.Pushes, sinkCall{Target: to, Replies: replies})
	return s.Err
}

func (s *fakeSink) lastReplyText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Replies) == 0 {
		return ""
	}
	last := s.Replies[len(s.Replies)-1]
	return last.Replies[0].Text
}

type fakeAI struct {
	mu         sync.Mutex
	Reply      string
	Err        error
	GotHistory []models.Message
}

func (f *fakeAI) ChatCompletion(ctx context.Context, history []models.Message) (string, error) {
	f.mu.Lock()
	f.GotHistory = history
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	return f.Reply, nil
}

type fakeImage struct {
	URL string
	Err error
}

func (f *fakeImage) Generate(ctx context.Context, prompt string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.URL, nil
}

type fakeSearch struct {
	Results  []models.SearchResult
	Err      error
	GotQuery string
	GotNum   int
}

func (f *fakeSearch) Search(ctx context.Context, query string, numResults int) ([]models.SearchResult, error) {
	f.GotQuery = query
	f.GotNum = numResults
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Results, nil
}

type fakeTTS struct {
	Audio    []byte
	Err      error
	GotText  string
	GotVoice string
	GotLang  string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voice, language string) ([]byte, error) {
	f.GotText = text
	f.GotVoice = voice
	f.GotLang = language
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Audio, nil
}

type fakeUploader struct {
	URL string
	Err error
}

func (f *fakeUploader) UploadAudio(ctx context.Context, audio []byte) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return f.URL, nil
}

type fakeProfiles struct {
	Name string
}

func (f *fakeProfiles) DisplayName(ctx context.Context, userID string) string {
	if f.Name == "" {
		return "User"
	}
	return f.Name
}

type fakeLimiter struct {
	mu      sync.Mutex
	Deny    bool
	Allowed []string
}

func (f *fakeLimiter) Allow(senderID string) bool {
	if f.Deny {
		return false
	}
	f.mu.Lock()
	f.Allowed = append(f.Allowed, senderID)
	f.mu.Unlock()
	return true
}

func (f *fakeLimiter) Reset(senderID string) {}

var errFake = errors.New("fake failure")

type routerEnv struct {
	Router    *CommandRouter
	Store     *conversation.MemoryStore
	Sink      *fakeSink
	AI        *fakeAI
	Image     *fakeImage
	Search    *fakeSearch
	TTS       *fakeTTS
	Uploader  *fakeUploader
	Localizer *i18n.Localizer
	Config    *config.Config
	Logger    *logrus.Logger
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	localizer, err := i18n.NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Directory:       "../../configs/i18n",
		Languages:       []string{"en", "zh-TW"},
	})
	require.NoError(t, err)

	cfg := &config.Config{
		Search: config.SearchConfig{DefaultResults: 3, MaxResults: 10},
		TTS:    config.TTSConfig{DefaultVoice: "henry", EstimatedWPM: 150},
	}

	env := &routerEnv{
		Store:     conversation.NewMemoryStore(20, log),
		Sink:      &fakeSink{},
		AI:        &fakeAI{Reply: "assistant reply"},
		Image:     &fakeImage{URL: "https://img.example/x.png"},
		Search:    &fakeSearch{},
		TTS:       &fakeTTS{Audio: []byte("mp3")},
		Uploader:  &fakeUploader{URL: "https://storage.example/tts/a.mp3"},
		Localizer: localizer,
		Config:    cfg,
		Logger:    log,
	}

	env.Router = NewCommandRouter(
		cfg,
		env.Store,
		env.AI,
		env.Image,
		env.Search,
		env.TTS,
		env.Uploader,
		&fakeProfiles{Name: "Alice"},
		env.Sink,
		localizer,
		middleware.NewMetrics(),
		log,
	)
	return env
}

func directEvent(text string) *models.InboundEvent {
	return &models.InboundEvent{
		Source:     models.SourceUser,
		SenderID:   "U-alice",
		Text:       text,
		ReplyToken: "tok-1",
	}
}

func directRequest(text string) *Request {
	evt := directEvent(text)
	return &Request{Event: evt, Key: evt.SenderID, Text: evt.Text}
}

func groupRequest(text string) *Request {
	evt := &models.InboundEvent{
		Source:     models.SourceGroup,
		SenderID:   "U-alice",
		GroupID:    "G-1",
		Text:       text,
		ReplyToken: "tok-1",
	}
	return &Request{Event: evt, Key: evt.GroupID, Text: text}
}
