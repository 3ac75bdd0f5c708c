package upload

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/errs"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Service represents the audio upload service interface
type Service interface {
	UploadAudio(ctx context.Context, audio []byte) (string, error)
}

// GCSUploader stores synthesized audio in a Google Cloud Storage bucket and
// returns the public object URL.
type GCSUploader struct {
	bucket string
	client *storage.Client
	logger *logrus.Logger
	now    func() time.Time
}

// NewGCSUploader creates an uploader from configuration. When bucket or
// credentials are absent the uploader is still constructed and every upload
// fails with a configuration error, so TTS degrades instead of the process
// refusing to start.
func NewGCSUploader(ctx context.Context, cfg *config.GCSConfig, logger *logrus.Logger) (*GCSUploader, error) {
	u := &GCSUploader{
		bucket: cfg.Bucket,
		logger: logger,
		now:    time.Now,
	}

	if cfg.Bucket == "" || cfg.CredentialsJSON == "" {
		logger.Warn("Google Cloud Storage not configured, audio upload disabled")
		return u, nil
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	u.client = client

	logger.WithField("bucket", cfg.Bucket).Info("Google Cloud Storage initialized")
	return u, nil
}

// UploadAudio writes mp3 bytes under tts/ and returns the hosted URL.
func (u *GCSUploader) UploadAudio(ctx context.Context, audio []byte) (string, error) {
	const op = "upload.UploadAudio"

	if u.client == nil {
		return "", errs.Newf(errs.KindConfigMissing, op, "google cloud storage not configured")
	}

	object := fmt.Sprintf("tts/tts_%d.mp3", u.now().UnixMilli())

	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "audio/mpeg"

	if _, err := w.Write(audio); err != nil {
		w.Close()
		return "", errs.New(errs.KindUnavailable, op, err)
	}
	if err := w.Close(); err != nil {
		return "", errs.New(errs.KindUnavailable, op, err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, object)

	u.logger.WithFields(logrus.Fields{
		"object": object,
		"bytes":  len(audio),
	}).Info("Audio uploaded")

	return url, nil
}
