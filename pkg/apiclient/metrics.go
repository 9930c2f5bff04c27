package apiclient

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "solarmon_api_"

var (
	registerOnce sync.Once

	requestsTotal   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	refreshesTotal  *prometheus.CounterVec
	refreshWaiters  prometheus.Counter
	authFailedTotal prometheus.Counter
)

func initMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "requests_total",
				Help: "Outbound API attempts by method and status code (0 when no response)",
			},
			[]string{"method", "code"},
		)
		requestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "request_duration_seconds",
				Help:    "Outbound API attempt latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)
		retriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "retries_total",
				Help: "Retries scheduled by reason",
			},
			[]string{"reason"},
		)
		refreshesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "token_refreshes_total",
				Help: "Token refresh calls by result",
			},
			[]string{"result"},
		)
		refreshWaiters = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "token_refresh_waiters_total",
			Help: "Requests that waited on an in-flight token refresh",
		})
		authFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "auth_failures_total",
			Help: "Unrecoverable authentication failures that cleared credentials",
		})

		prometheus.MustRegister(
			requestsTotal,
			requestLatency,
			retriesTotal,
			refreshesTotal,
			refreshWaiters,
			authFailedTotal,
		)
	})
}

func observeAttempt(method string, code int, d time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	requestLatency.WithLabelValues(method).Observe(d.Seconds())
}
