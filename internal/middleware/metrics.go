package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_bot_events_received_total",
		Help: "Total number of webhook events received",
	}, []string{"source"})

	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_bot_events_processed_total",
		Help: "Total number of events processed",
	}, []string{"status"})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "line_bot_ai_request_duration_seconds",
		Help:    "Duration of chat completion requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	rateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "line_bot_rate_limit_exceeded_total",
		Help: "Total number of rate limit denials",
	})

	collaboratorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_bot_collaborator_errors_total",
		Help: "Total number of external collaborator failures",
	}, []string{"collaborator", "kind"})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "line_bot_webhook_deliveries_total",
		Help: "Total number of webhook deliveries",
	}, []string{"status"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordEventReceived records a received event by source kind.
func (m *Metrics) RecordEventReceived(source string) {
	eventsReceived.WithLabelValues(source).Inc()
}

// RecordEventProcessed records a processed event outcome.
func (m *Metrics) RecordEventProcessed(status string) {
	eventsProcessed.WithLabelValues(status).Inc()
}

// RecordCommandExecuted records an executed command.
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordAIRequest records a chat completion request.
func (m *Metrics) RecordAIRequest(status string, duration time.Duration) {
	aiRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRateLimitExceeded records a rate limit denial.
func (m *Metrics) RecordRateLimitExceeded() {
	rateLimitExceeded.Inc()
}

// RecordCollaboratorError records an external collaborator failure.
func (m *Metrics) RecordCollaboratorError(collaborator, kind string) {
	collaboratorErrors.WithLabelValues(collaborator, kind).Inc()
}

// RecordWebhookDelivery records a webhook delivery outcome.
func (m *Metrics) RecordWebhookDelivery(status string) {
	webhookDeliveries.WithLabelValues(status).Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
