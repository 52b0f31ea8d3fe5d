// Package observability registers the Prometheus metrics exported by the dashboard server.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "training_dashboard",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of dashboard API requests by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	gatewayRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "training_dashboard",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Latency of coach API requests by endpoint and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})
	athleteRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_dashboard",
		Subsystem: "athlete",
		Name:      "refresh_total",
		Help:      "Athlete data refreshes by outcome (success, error, stale).",
	}, []string{"outcome"})
	athleteRefreshedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "training_dashboard",
		Subsystem: "athlete",
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix timestamp of the most recent applied athlete refresh.",
	})
	syncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_dashboard",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Global sync runs by trigger and outcome.",
	}, []string{"trigger", "outcome"})
	syncBusyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "training_dashboard",
		Subsystem: "sync",
		Name:      "busy",
		Help:      "1 while a global sync or delete is in progress.",
	})
	calendarLoadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_dashboard",
		Subsystem: "calendar",
		Name:      "load_total",
		Help:      "Calendar data loads by outcome (success, error, stale).",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		httpRequestDuration,
		gatewayRequestDuration,
		athleteRefreshTotal,
		athleteRefreshedGauge,
		syncRunsTotal,
		syncBusyGauge,
		calendarLoadTotal,
	)
}

// RecordHTTPRequest observes one served API request.
func RecordHTTPRequest(method, route, status string, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// RecordGatewayRequest observes the latency of one coach API call.
func RecordGatewayRequest(endpoint, outcome string, d time.Duration) {
	gatewayRequestDuration.WithLabelValues(endpoint, outcome).Observe(d.Seconds())
}

// RecordAthleteRefresh counts a refresh outcome and moves the watermark on success.
func RecordAthleteRefresh(outcome string, ts time.Time) {
	athleteRefreshTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" && !ts.IsZero() {
		athleteRefreshedGauge.Set(float64(ts.Unix()))
	}
}

// RecordSyncRun counts a finished global sync.
func RecordSyncRun(trigger, outcome string) {
	syncRunsTotal.WithLabelValues(trigger, outcome).Inc()
}

// SetSyncBusy mirrors the orchestrator busy flag.
func SetSyncBusy(busy bool) {
	if busy {
		syncBusyGauge.Set(1)
		return
	}
	syncBusyGauge.Set(0)
}

// RecordCalendarLoad counts a calendar load outcome.
func RecordCalendarLoad(outcome string) {
	calendarLoadTotal.WithLabelValues(outcome).Inc()
}
