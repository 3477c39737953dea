package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apy_monitor",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "apy_monitor",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "apy_monitor",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Run / fetch metrics ────────────────────────────────────────────────

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apy_monitor",
		Subsystem: "run",
		Name:      "total",
		Help:      "Total number of pipeline runs by final state and reason.",
	}, []string{"state", "reason"})

	RunLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "apy_monitor",
		Subsystem: "run",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last run that reached DONE.",
	})

	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apy_monitor",
		Subsystem: "fetch",
		Name:      "total",
		Help:      "Total number of upstream fetch attempts.",
	}, []string{"source", "status"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "apy_monitor",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Duration of the upstream fetch in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"source"})

	PoolsFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "apy_monitor",
		Subsystem: "pools",
		Name:      "fetched",
		Help:      "Number of pools returned by the last fetch.",
	})

	PoolsSelected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "apy_monitor",
		Subsystem: "pools",
		Name:      "selected",
		Help:      "Number of pools selected in the last run.",
	})
)

// ── Storage metrics ────────────────────────────────────────────────────

var (
	LogRowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apy_monitor",
		Subsystem: "storage",
		Name:      "log_rows_written_total",
		Help:      "Total history rows appended per recorder.",
	}, []string{"recorder"})

	StorageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apy_monitor",
		Subsystem: "storage",
		Name:      "errors_total",
		Help:      "Total storage failures per stage.",
	}, []string{"stage"})
)

// ── Alert delivery metrics ─────────────────────────────────────────────

var (
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apy_monitor",
		Subsystem: "alerts",
		Name:      "sent_total",
		Help:      "Total alerts successfully delivered.",
	}, []string{"pool_id"})

	AlertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "apy_monitor",
		Subsystem: "alerts",
		Name:      "failed_total",
		Help:      "Total alert delivery failures.",
	}, []string{"pool_id"})
)

// ── Business metrics ───────────────────────────────────────────────────

var (
	PoolAPY = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "apy_monitor",
		Subsystem: "business",
		Name:      "pool_apy_percent",
		Help:      "Latest APY of a selected pool.",
	}, []string{"pool_id", "chain", "project"})

	PoolTVL = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "apy_monitor",
		Subsystem: "business",
		Name:      "pool_tvl_usd",
		Help:      "Latest TVL in USD of a selected pool.",
	}, []string{"pool_id", "chain", "project"})
)
