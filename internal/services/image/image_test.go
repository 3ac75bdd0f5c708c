package image

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ai-linebot-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewClient(&config.ImageConfig{
		BaseURL:     baseURL,
		FallbackURL: "https://example.com/fallback.png",
		Timeout:     5 * time.Second,
	}, log)
}

func TestGenerateReturnsPromptURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	got, err := client.Generate(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/prompt/a%20red%20fox", got)
	assert.Equal(t, "/prompt/a%20red%20fox", gotPath)
}

func TestGenerateFallsBackOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	got, err := client.Generate(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/fallback.png", got)
}

func TestGenerateFallsBackOnUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(srv.URL)
	got, err := client.Generate(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/fallback.png", got)
}
