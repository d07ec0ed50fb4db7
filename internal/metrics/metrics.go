// Package metrics exports agent status as prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/axondata/go-launchagent"
)

var allStates = []launchagent.State{
	launchagent.StateNotLoaded,
	launchagent.StateRunning,
	launchagent.StateLoaded,
	launchagent.StateError,
}

// Collector holds the agent metrics. Each Collector owns its registry so
// several can coexist in tests.
type Collector struct {
	registry        *prometheus.Registry
	agents          *prometheus.GaugeVec
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
}

// NewCollector creates and registers the metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		agents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "launchagent_agents",
				Help: "Number of agents by reconciled state.",
			},
			[]string{"state"},
		),
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launchagent_refresh_total",
				Help: "Refreshes by result.",
			},
			[]string{"result"},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launchagent_refresh_duration_seconds",
				Help:    "Time spent scanning descriptors and querying launchd.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	c.registry.MustRegister(c.agents, c.refreshTotal, c.refreshDuration)
	return c
}

// Observe is a launchagent.RefreshHook that updates the per-state gauge
func (c *Collector) Observe(_, next []launchagent.LaunchAgent) {
	counts := make(map[launchagent.State]int, len(allStates))
	for _, a := range next {
		counts[a.Status.State]++
	}
	for _, st := range allStates {
		c.agents.WithLabelValues(st.String()).Set(float64(counts[st]))
	}
}

// ObserveRefresh records the outcome and duration of one refresh
func (c *Collector) ObserveRefresh(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.refreshTotal.WithLabelValues(result).Inc()
	c.refreshDuration.Observe(d.Seconds())
}

// Handler serves the collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Refresher wraps r so each Refresh is timed and counted
func (c *Collector) Refresher(r launchagent.Refresher) launchagent.Refresher {
	return timedRefresher{next: r, c: c}
}

type timedRefresher struct {
	next launchagent.Refresher
	c    *Collector
}

func (t timedRefresher) Refresh(ctx context.Context) error {
	start := time.Now()
	err := t.next.Refresh(ctx)
	t.c.ObserveRefresh(time.Since(start), err)
	return err
}
