package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/errs"
	"github.com/ai-linebot-go/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewClient(&config.AIConfig{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		Model:        "openai/gpt-oss-120b",
		Temperature:  0.7,
		MaxTokens:    500,
		SystemPrompt: "You are a helpful assistant.",
		Timeout:      5 * time.Second,
	}, log)
}

func completionResponse(content string) string {
	return `{"choices":[{"message":{"content":"` + content + `"}}]}`
}

func TestChatCompletionSuccess(t *testing.T) {
	var gotBody struct {
		Model       string           `json:"model"`
		Messages    []models.Message `json:"messages"`
		Temperature float64          `json:"temperature"`
		MaxTokens   int              `json:"max_tokens"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(completionResponse("generated text")))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	history := []models.Message{{Role: models.RoleUser, Content: "hello"}}

	reply, err := client.ChatCompletion(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "generated text", reply)

	// System instruction is prepended to the bounded history.
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, models.RoleSystem, gotBody.Messages[0].Role)
	assert.Equal(t, "hello", gotBody.Messages[1].Content)
	assert.Equal(t, "openai/gpt-oss-120b", gotBody.Model)
	assert.Equal(t, 500, gotBody.MaxTokens)
}

func TestChatCompletionMissingKey(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	client := NewClient(&config.AIConfig{Timeout: time.Second}, log)

	_, err := client.ChatCompletion(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errs.KindConfigMissing, errs.KindOf(err))
}

func TestChatCompletionStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   errs.Kind
	}{
		{http.StatusUnauthorized, errs.KindAuthRejected},
		{http.StatusTooManyRequests, errs.KindRateLimited},
		{http.StatusInternalServerError, errs.KindUnavailable},
		{http.StatusServiceUnavailable, errs.KindUnavailable},
		{http.StatusBadRequest, errs.KindUnknown},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		client := newTestClient(srv.URL)
		_, err := client.ChatCompletion(context.Background(), nil)
		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.kind, errs.KindOf(err), "status %d", tc.status)
		srv.Close()
	}
}

func TestChatCompletionEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ChatCompletion(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))
}

func TestChatCompletionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ChatCompletion(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestChatCompletionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(completionResponse("late")))
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)
	client := NewClient(&config.AIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 50 * time.Millisecond,
	}, log)

	_, err := client.ChatCompletion(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, errs.KindTimeout, errs.KindOf(err))
}
