// Package metrics collects and exposes Prometheus metrics for the job
// engine: cumulative installed-job and per-result completion counters plus
// instantaneous gauges for running and queued jobs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics. Each collector owns its own
// registry so multiple managers can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	jobsInstalled prometheus.Counter
	jobsFinished  *prometheus.CounterVec

	jobsRunning   prometheus.Gauge
	runQueueDepth prometheus.Gauge
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsInstalled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unitd_jobs_installed_total",
			Help: "Total number of jobs installed",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unitd_jobs_finished_total",
			Help: "Total number of finished jobs by result",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "unitd_jobs_running",
			Help: "Current number of jobs in the running state",
		}),
		runQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "unitd_run_queue_depth",
			Help: "Current number of jobs marked for dispatch",
		}),
	}

	c.registry.MustRegister(c.jobsInstalled)
	c.registry.MustRegister(c.jobsFinished)
	c.registry.MustRegister(c.jobsRunning)
	c.registry.MustRegister(c.runQueueDepth)

	return c
}

// JobInstalled records a job installation
func (c *Collector) JobInstalled() {
	c.jobsInstalled.Inc()
}

// JobStateChanged records the current running-jobs count
func (c *Collector) JobStateChanged(running int) {
	c.jobsRunning.Set(float64(running))
}

// JobFinished records a finished job by result
func (c *Collector) JobFinished(result string) {
	c.jobsFinished.WithLabelValues(result).Inc()
}

// RunQueueDepth records the current run-queue depth
func (c *Collector) RunQueueDepth(depth int) {
	c.runQueueDepth.Set(float64(depth))
}

// Handler returns the HTTP handler exposing this collector's registry in
// Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gather returns the name and series count of each registered family, for
// tests
func (c *Collector) Gather() ([]*MetricFamily, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make([]*MetricFamily, 0, len(families))
	for _, f := range families {
		out = append(out, &MetricFamily{Name: f.GetName(), Metrics: len(f.GetMetric())})
	}
	return out, nil
}

// MetricFamily is a minimal view of a gathered metric family
type MetricFamily struct {
	Name    string
	Metrics int
}
