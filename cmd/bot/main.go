package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ai-linebot-go/internal/config"
	"github.com/ai-linebot-go/internal/conversation"
	"github.com/ai-linebot-go/internal/handlers"
	"github.com/ai-linebot-go/internal/i18n"
	"github.com/ai-linebot-go/internal/middleware"
	"github.com/ai-linebot-go/internal/platform"
	"github.com/ai-linebot-go/internal/services/ai"
	"github.com/ai-linebot-go/internal/services/image"
	"github.com/ai-linebot-go/internal/services/profile"
	"github.com/ai-linebot-go/internal/services/search"
	"github.com/ai-linebot-go/internal/services/tts"
	"github.com/ai-linebot-go/internal/services/upload"
	"github.com/ai-linebot-go/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting LINE bot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Platform adapter
	line, err := platform.NewLineClient(&cfg.Line, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create LINE client")
	}

	// Bot identity is needed for mention matching; a failed fetch degrades
	// group mentions to never-match instead of aborting startup.
	identityCtx, identityCancel := context.WithTimeout(ctx, 10*time.Second)
	line.FetchIdentity(identityCtx)
	identityCancel()

	// Services
	aiService := ai.NewClient(&cfg.AI, log)
	imageService := image.NewClient(&cfg.Image, log)
	searchService := search.NewClient(&cfg.Search, log)
	ttsService := tts.NewClient(&cfg.TTS, log)

	uploader, err := upload.NewGCSUploader(ctx, &cfg.Storage.GCS, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage uploader")
	}

	profiles := profile.NewCachedResolver(line.LookupDisplayName, cfg.Profile.CacheTTL, log)

	// Conversation state
	store := conversation.NewMemoryStore(cfg.Conversation.MaxHistory, log)

	// Rate limiter
	rateLimiter, err := middleware.NewRateLimiter(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize rate limiter")
	}

	// i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Metrics
	metrics := middleware.NewMetrics()
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Pipeline
	mentionResolver := handlers.NewMentionResolver(line.Identity)
	router := handlers.NewCommandRouter(
		cfg,
		store,
		aiService,
		imageService,
		searchService,
		ttsService,
		uploader,
		profiles,
		line,
		localizer,
		metrics,
		log,
	)
	pipeline := handlers.NewEventPipeline(
		mentionResolver,
		rateLimiter,
		router,
		line,
		localizer,
		metrics,
		log,
	)

	// Webhook server
	webhook := handlers.NewWebhookHandler(line, pipeline, metrics, log, cfg.Server.TestWebhook)
	muxRouter := mux.NewRouter()
	webhook.Register(muxRouter)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      muxRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Webhook server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Webhook server failed")
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Webhook server shutdown failed")
	}

	cancel()
	log.Info("Bot stopped")
}
