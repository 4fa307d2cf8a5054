package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "activity",
		Name:      "logged_total",
		Help:      "Number of activities appended to activity logs.",
	}, []string{"category", "source"})

	co2Logged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "activity",
		Name:      "co2_kg_total",
		Help:      "Sum of kg CO2 estimated for logged activities.",
	}, []string{"category"})

	persistenceFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "activity",
		Name:      "persistence_failures_total",
		Help:      "Activity log writes that failed and were kept in memory only.",
	})

	voiceCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "voice",
		Name:      "commands_total",
		Help:      "Final voice transcripts interpreted, by matched category.",
	}, []string{"category"})

	challengesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "challenge",
		Name:      "completed_total",
		Help:      "Challenges completed by users.",
	})

	exportsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "export",
		Name:      "messages_processed_total",
		Help:      "Activity export messages handled by the worker.",
	}, []string{"outcome"})

	lastExportGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecotrack",
		Subsystem: "export",
		Name:      "last_export_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful activity export.",
	})

	httpRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecotrack",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern and status class.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter.",
	})

	suspiciousRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecotrack",
		Subsystem: "http",
		Name:      "suspicious_requests_total",
		Help:      "Requests flagged by the suspicious pattern detector.",
	})
)

func init() {
	prometheus.MustRegister(activitiesLogged, co2Logged, persistenceFailures,
		voiceCommands, challengesCompleted, exportsProcessed, lastExportGauge,
		httpRequests, rateLimited, suspiciousRequests)
}

// RecordActivityLogged counts an appended activity and its CO2.
func RecordActivityLogged(category, source string, co2 float64) {
	if source == "" {
		source = "form"
	}
	activitiesLogged.WithLabelValues(category, source).Inc()
	if co2 > 0 {
		co2Logged.WithLabelValues(category).Add(co2)
	}
}

func RecordPersistenceFailure() {
	persistenceFailures.Inc()
}

// RecordVoiceCommand counts an interpreted transcript. Unmatched transcripts
// use the "none" label.
func RecordVoiceCommand(category string) {
	if category == "" {
		category = "none"
	}
	voiceCommands.WithLabelValues(category).Inc()
}

func RecordChallengeCompleted() {
	challengesCompleted.Inc()
}

// RecordExport counts a processed export message and moves the watermark on
// success.
func RecordExport(ok bool, ts time.Time) {
	if !ok {
		exportsProcessed.WithLabelValues("error").Inc()
		return
	}
	exportsProcessed.WithLabelValues("ok").Inc()
	if !ts.IsZero() {
		lastExportGauge.Set(float64(ts.Unix()))
	}
}

// RecordHTTPRequest observes a served request. route is the matched mux
// pattern; unmatched requests use "unmatched" to keep cardinality bounded.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Observe(d.Seconds())
}

func RecordRateLimited() {
	rateLimited.Inc()
}

func RecordSuspiciousRequest() {
	suspiciousRequests.Inc()
}
