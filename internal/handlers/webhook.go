package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ai-linebot-go/internal/middleware"
	"github.com/ai-linebot-go/internal/models"
	"github.com/ai-linebot-go/internal/platform"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// WebhookHandler terminates the platform's webhook deliveries. Per-event
// failures are converted to replies inside the pipeline; only an unreadable
// or unverifiable payload fails the delivery itself.
type WebhookHandler struct {
	line      *platform.LineClient
	pipeline  *EventPipeline
	metrics   *middleware.Metrics
	logger    *logrus.Logger
	allowTest bool
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(line *platform.LineClient, pipeline *EventPipeline, metrics *middleware.Metrics, logger *logrus.Logger, allowTest bool) *WebhookHandler {
	return &WebhookHandler{
		line:      line,
		pipeline:  pipeline,
		metrics:   metrics,
		logger:    logger,
		allowTest: allowTest,
	}
}

// Register mounts the webhook routes on the router.
func (h *WebhookHandler) Register(router *mux.Router) {
	router.HandleFunc("/webhook", h.handleWebhook).Methods(http.MethodPost)
	if h.allowTest {
		// Unvalidated route for local testing without platform signatures.
		router.HandleFunc("/webhook/test", h.handleTestWebhook).Methods(http.MethodPost)
	}
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
}

func (h *WebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Webhook received")

	events, err := h.line.ParseWebhook(r)
	if err != nil {
		h.logger.WithError(err).Error("Failed to parse webhook")
		h.metrics.RecordWebhookDelivery("parse_error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.dispatch(w, r, events)
}

func (h *WebhookHandler) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Test webhook received")

	events, err := h.line.ParseUnverified(r)
	if err != nil {
		h.logger.WithError(err).Error("Failed to parse test webhook")
		h.metrics.RecordWebhookDelivery("parse_error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.dispatch(w, r, events)
}

func (h *WebhookHandler) dispatch(w http.ResponseWriter, r *http.Request, events []*models.InboundEvent) {
	h.pipeline.HandleDelivery(r.Context(), events)
	h.metrics.RecordWebhookDelivery("success")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
