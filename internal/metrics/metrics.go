// Package metrics exposes the broker's event-loop counters as Prometheus
// collectors: queue depth, ready-worker count, active-job count, dispatch
// throughput, and factory spawn outcomes, so an operator's Prometheus
// scrapes the same /metrics endpoint the status API serves.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements broker.Metrics against the Prometheus client library.
type Collector struct {
	queueDepth    prometheus.Gauge
	readyWorkers  prometheus.Gauge
	activeJobs    prometheus.Gauge
	dispatches    prometheus.Counter
	spawnsOK      prometheus.Counter
	spawnsFailed  prometheus.Counter
}

// NewCollector builds and registers the broker's metric set against reg. A
// caller that doesn't care about isolation can pass prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshbroker_queue_depth",
			Help: "Number of jobs currently queued, across all job types.",
		}),
		readyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshbroker_ready_workers",
			Help: "Number of workers currently idle and ready for dispatch.",
		}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshbroker_active_jobs",
			Help: "Number of jobs currently assigned to a worker.",
		}),
		dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshbroker_dispatches_total",
			Help: "Total number of jobs handed off from the queue to a worker.",
		}),
		spawnsOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshbroker_factory_spawns_total",
			Help: "Total number of successful worker-factory spawn requests.",
		}),
		spawnsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshbroker_factory_spawn_failures_total",
			Help: "Total number of worker-factory spawn requests that were refused.",
		}),
	}

	reg.MustRegister(c.queueDepth, c.readyWorkers, c.activeJobs, c.dispatches, c.spawnsOK, c.spawnsFailed)
	return c
}

// ObserveTick implements broker.Metrics.
func (c *Collector) ObserveTick(queueDepth, readyWorkers, activeJobs int) {
	c.queueDepth.Set(float64(queueDepth))
	c.readyWorkers.Set(float64(readyWorkers))
	c.activeJobs.Set(float64(activeJobs))
}

// IncDispatch implements broker.Metrics.
func (c *Collector) IncDispatch() {
	c.dispatches.Inc()
}

// IncFactorySpawn implements broker.Metrics.
func (c *Collector) IncFactorySpawn(ok bool) {
	if ok {
		c.spawnsOK.Inc()
		return
	}
	c.spawnsFailed.Inc()
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
