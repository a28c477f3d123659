// Package metrics holds the bot's prometheus collectors on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

const namespace = "chessbot"

type Metrics struct {
	registry *prometheus.Registry

	Fetches           *prometheus.CounterVec
	GamesFetched      *prometheus.CounterVec
	ClassifyAnomalies *prometheus.CounterVec
	LeaderboardRuns   *prometheus.CounterVec
	LeaderboardTime   prometheus.Histogram
	Championships     *prometheus.CounterVec
	Commands          *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_fetches_total",
			Help:      "Game fetches per platform by outcome.",
		}, []string{"platform", "outcome"}),
		GamesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_games_fetched_total",
			Help:      "Games returned by platform fetches.",
		}, []string{"platform"}),
		ClassifyAnomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classify_anomalies_total",
			Help:      "Games where the registered handle played neither side.",
		}, []string{"platform"}),
		LeaderboardRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_runs_total",
			Help:      "Leaderboard computations by window kind.",
		}, []string{"window"}),
		LeaderboardTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_duration_seconds",
			Help:      "Wall time of a leaderboard computation.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		Championships: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "championship_runs_total",
			Help:      "Daily championship runs by result.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_commands_total",
			Help:      "Bot commands handled.",
		}, []string{"command"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Fetches,
		m.GamesFetched,
		m.ClassifyAnomalies,
		m.LeaderboardRuns,
		m.LeaderboardTime,
		m.Championships,
		m.Commands,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var Module = fx.Provide(New)
