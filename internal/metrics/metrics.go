package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// Pipeline metrics
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_webhooks_total",
			Help: "Total webhooks dispatched, by platform and response status code",
		},
		[]string{"platform", "status"},
	)

	FilesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_files_relayed_total",
			Help: "Total files uploaded to storage",
		},
		[]string{"platform", "file_type"},
	)

	RelayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_relay_failures_total",
			Help: "Total failed file relays",
		},
		[]string{"platform", "reason"}, // download, upload, resolution, ...
	)

	RepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_replies_total",
			Help: "Total replies sent back to senders",
		},
		[]string{"result"}, // "sent" or "failed"
	)

	DriveFoldersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_drive_folders_created_total",
			Help: "Total folders created on the storage backend",
		},
	)
)
