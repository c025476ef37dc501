// Package metrics exposes Prometheus counters and gauges for the catalog
// poller, the playback session and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jvsview/internal/models"
)

const namespace = "jvsview"

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    prometheus.Counter
	errorsTotal      prometheus.Counter
	refreshesTotal   prometheus.Counter
	refreshFailures  prometheus.Counter
	catalogStreams   prometheus.Gauge
	sessionsStarted  prometheus.Counter
	sessionsClosed   *prometheus.CounterVec
	sessionActive    prometheus.Gauge
	playerErrors     *prometheus.CounterVec
	lastRefreshEpoch prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		refreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Catalog refreshes that produced a new snapshot",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_failures_total",
			Help:      "Catalog refreshes that failed in transport or parsing",
		}),
		catalogStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_streams",
			Help:      "Number of streams in the current catalog snapshot",
		}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Playback sessions that reached the active state",
		}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Playback sessions torn down, by outcome",
		}, []string{"outcome"}),
		sessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_active",
			Help:      "1 while a playback session is active",
		}),
		playerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "player_errors_total",
			Help:      "Playback failures presented to the user, by player error code",
		}, []string{"code"}),
		lastRefreshEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful catalog refresh",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.refreshesTotal,
		m.refreshFailures,
		m.catalogStreams,
		m.sessionsStarted,
		m.sessionsClosed,
		m.sessionActive,
		m.playerErrors,
		m.lastRefreshEpoch,
	)
	return m
}

func (m *Metrics) IncRequests() { m.requestsTotal.Inc() }

func (m *Metrics) IncErrors() { m.errorsTotal.Inc() }

// RefreshSucceeded records a published catalog snapshot of n streams.
func (m *Metrics) RefreshSucceeded(n int) {
	m.refreshesTotal.Inc()
	m.catalogStreams.Set(float64(n))
	m.lastRefreshEpoch.SetToCurrentTime()
}

func (m *Metrics) RefreshFailed() { m.refreshFailures.Inc() }

func (m *Metrics) SessionStarted() {
	m.sessionsStarted.Inc()
	m.sessionActive.Set(1)
}

func (m *Metrics) SessionClosed(outcome models.PlaybackOutcome) {
	m.sessionsClosed.WithLabelValues(string(outcome)).Inc()
	m.sessionActive.Set(0)
}

// PlayerError counts a presented failure. Code 0 covers failures that did
// not originate in the player.
func (m *Metrics) PlayerError(code int) {
	m.playerErrors.WithLabelValues(strconv.Itoa(code)).Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}

// SetSessionActive overrides the session gauge, used by scrape-time updates.
func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.sessionActive.Set(1)
		return
	}
	m.sessionActive.Set(0)
}
