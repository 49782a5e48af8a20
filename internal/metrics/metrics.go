package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors, registered on their own registry
type Metrics struct {
	registry *prometheus.Registry

	Connections    prometheus.Gauge
	Players        prometheus.Gauge
	Waiting        *prometheus.GaugeVec
	MatchesStarted *prometheus.CounterVec
	MatchesEnded   *prometheus.CounterVec
	Moves          *prometheus.CounterVec
	GracePeriods   *prometheus.CounterVec
	RateLimited    prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPPanics     prometheus.Counter
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "battld_connections",
			Help: "Open realtime connections",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "battld_players_online",
			Help: "Authenticated players with a live connection",
		}),
		Waiting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battld_waiting_players",
			Help: "Players waiting for an opponent",
		}, []string{"game_type"}),
		MatchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battld_matches_started_total",
			Help: "Matches paired and started",
		}, []string{"game_type"}),
		MatchesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battld_matches_ended_total",
			Help: "Matches finished, by end reason",
		}, []string{"game_type", "reason"}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battld_moves_total",
			Help: "Submitted moves, by result",
		}, []string{"game_type", "result"}),
		GracePeriods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battld_grace_periods_total",
			Help: "Reconnection windows, by how they ended",
		}, []string{"result"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "battld_rate_limited_frames_total",
			Help: "Inbound frames rejected by the rate limiter",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battld_http_requests_total",
			Help: "HTTP requests, by method and status",
		}, []string{"method", "status"}),
		HTTPPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "battld_http_panics_total",
			Help: "Handler panics recovered by the API",
		}),
	}

	m.registry.MustRegister(
		m.Connections,
		m.Players,
		m.Waiting,
		m.MatchesStarted,
		m.MatchesEnded,
		m.Moves,
		m.GracePeriods,
		m.RateLimited,
		m.HTTPRequests,
		m.HTTPPanics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Move results
const (
	MoveAccepted = "accepted"
	MoveRejected = "rejected"
	MoveFailed   = "failed"
)

// Grace period results
const (
	GraceStarted   = "started"
	GraceResumed   = "resumed"
	GraceForfeited = "forfeited"
)

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
