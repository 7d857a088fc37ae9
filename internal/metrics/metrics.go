// Package metrics exposes duel counters to prometheus
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for duel results
const (
	OutcomeFinished  = "finished"
	OutcomeCancelled = "cancelled"
)

// Request labels for request results
const (
	RequestSent     = "sent"
	RequestAccepted = "accepted"
	RequestDenied   = "denied"
	RequestExpired  = "expired"
)

// Metrics holds every collector the core updates
type Metrics struct {
	registry *prometheus.Registry

	Requests     *prometheus.CounterVec
	DuelsStarted prometheus.Counter
	DuelsEnded   *prometheus.CounterVec
	ActiveDuels  prometheus.Gauge
	Payouts      prometheus.Counter
	StatsFlushes *prometheus.CounterVec
	MovesBlocked prometheus.Counter
	BridgeFrames *prometheus.CounterVec
}

// New creates and registers collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cduello",
			Name:      "requests_total",
			Help:      "Duel requests by result.",
		}, []string{"result"}),
		DuelsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cduello",
			Name:      "duels_started_total",
			Help:      "Duels that entered the countdown.",
		}),
		DuelsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cduello",
			Name:      "duels_ended_total",
			Help:      "Duels that reached a terminal state.",
		}, []string{"outcome"}),
		ActiveDuels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cduello",
			Name:      "active_duels",
			Help:      "Duels currently registered.",
		}),
		Payouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cduello",
			Name:      "payouts_total",
			Help:      "Currency paid to duel winners.",
		}),
		StatsFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cduello",
			Name:      "stats_flushes_total",
			Help:      "Statistics flushes by result.",
		}, []string{"result"}),
		MovesBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cduello",
			Name:      "moves_blocked_total",
			Help:      "Movements reverted during a countdown.",
		}),
		BridgeFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cduello",
			Name:      "bridge_frames_total",
			Help:      "Frames received from the host by type.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		m.Requests,
		m.DuelsStarted,
		m.DuelsEnded,
		m.ActiveDuels,
		m.Payouts,
		m.StatsFlushes,
		m.MovesBlocked,
		m.BridgeFrames,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
