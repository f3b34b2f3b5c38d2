package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command metrics
var (
	// CommandsTotal tracks processed commands by aggregate, command and outcome.
	// Outcome is "accepted", "rejected" (a failure event was emitted) or "error".
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseaccess_commands_total",
			Help: "Total number of processed commands by aggregate, command and outcome",
		},
		[]string{"aggregate", "command", "outcome"},
	)

	// CommandDuration tracks end-to-end command handling duration, including
	// stream load, decision and append.
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caseaccess_command_duration_seconds",
			Help:    "Command handling duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"aggregate", "command"},
	)
)

// Event store metrics
var (
	// EventsAppendedTotal tracks events appended to streams by event name.
	EventsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseaccess_events_appended_total",
			Help: "Total number of events appended by event name",
		},
		[]string{"event"},
	)

	// StreamVersionConflictsTotal tracks optimistic-concurrency conflicts on
	// append. A persistently high rate points at missing per-stream locking
	// upstream.
	StreamVersionConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseaccess_stream_version_conflicts_total",
			Help: "Total number of stream version conflicts on append",
		},
	)

	// StreamLoadDuration tracks event stream load-and-fold duration.
	StreamLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caseaccess_stream_load_duration_seconds",
			Help:    "Event stream load duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"aggregate"},
	)
)

// Projection metrics
var (
	// AccessRecordsUpserted tracks access-record projection writes by kind.
	AccessRecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseaccess_access_records_upserted_total",
			Help: "Total number of access-record upserts by subject kind",
		},
		[]string{"kind"},
	)

	// AccessRecordsPurged tracks expired access records removed by the
	// purge job.
	AccessRecordsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseaccess_access_records_purged_total",
			Help: "Total number of expired access records purged",
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseaccess_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caseaccess_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// RateLimitedTotal tracks requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseaccess_http_rate_limited_total",
			Help: "Total number of rate-limited HTTP requests",
		},
	)
)

// Job metrics
var (
	// JobRunsTotal tracks background job runs by task and status.
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseaccess_job_runs_total",
			Help: "Total number of background job runs by task and status",
		},
		[]string{"task", "status"},
	)

	// JobDuration tracks background job duration by task.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caseaccess_job_duration_seconds",
			Help:    "Background job duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"task"},
	)
)

// WebSocket metrics
var (
	// WebSocketConnections tracks currently open event-feed connections.
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "caseaccess_websocket_connections",
			Help: "Number of open websocket event-feed connections",
		},
	)

	// WebSocketEventsSent tracks events broadcast to feed subscribers.
	WebSocketEventsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseaccess_websocket_events_sent_total",
			Help: "Total number of events broadcast over the websocket feed",
		},
	)
)
