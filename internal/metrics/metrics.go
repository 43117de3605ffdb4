// Package metrics exposes job lifecycle metrics to Prometheus.
//
// The Collector is an event bus observer. It counts enqueued, completed and
// failed jobs by queue and class, tracks jobs in flight and observes how long
// each job took from BeforePerform to its outcome. Skipped jobs are counted
// separately and carry no duration.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuongbtq/resque-go/internal/job"
)

const namespace = "resque"

// Collector records job metrics into its own registry.
type Collector struct {
	registry *prometheus.Registry

	jobsEnqueued  *prometheus.CounterVec
	jobsCompleted *prometheus.CounterVec
	jobsFailed    *prometheus.CounterVec
	jobsSkipped   *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobsInFlight  prometheus.Gauge

	started sync.Map // *job.Job -> time.Time
	now     func() time.Time
}

// NewCollector creates a collector registered on a fresh registry that also
// carries the Go runtime and process collectors.
func NewCollector() *Collector {
	labels := []string{"queue", "class"}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Total number of jobs enqueued",
		}, labels),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs completed successfully",
		}, labels),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs failed",
		}, labels),
		jobsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_skipped_total",
			Help:      "Total number of jobs that asked not to be performed",
		}, labels),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job execution time in seconds",
			Buckets:   prometheus.DefBuckets,
		}, labels),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Current number of jobs being performed",
		}),
		now: time.Now,
	}

	c.registry.MustRegister(
		c.jobsEnqueued,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobsSkipped,
		c.jobDuration,
		c.jobsInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) AfterEnqueue(ctx context.Context, class string, args []any, queue string) error {
	c.jobsEnqueued.WithLabelValues(queue, class).Inc()
	return nil
}

func (c *Collector) BeforePerform(ctx context.Context, j *job.Job) error {
	c.started.Store(j, c.now())
	c.jobsInFlight.Inc()
	return nil
}

func (c *Collector) AfterPerform(ctx context.Context, j *job.Job) error {
	c.jobsCompleted.WithLabelValues(j.Queue, j.Class()).Inc()
	c.finish(j)
	return nil
}

func (c *Collector) OnFailure(ctx context.Context, err error, j *job.Job) error {
	c.jobsFailed.WithLabelValues(j.Queue, j.Class()).Inc()
	c.finish(j)
	return nil
}

func (c *Collector) OnSkip(ctx context.Context, j *job.Job) error {
	c.jobsSkipped.WithLabelValues(j.Queue, j.Class()).Inc()
	if _, ok := c.started.LoadAndDelete(j); ok {
		c.jobsInFlight.Dec()
	}
	return nil
}

// finish observes the duration of a job seen by BeforePerform. Jobs that
// failed before reaching it carry no duration.
func (c *Collector) finish(j *job.Job) {
	v, ok := c.started.LoadAndDelete(j)
	if !ok {
		return
	}
	c.jobsInFlight.Dec()
	c.jobDuration.WithLabelValues(j.Queue, j.Class()).Observe(c.now().Sub(v.(time.Time)).Seconds())
}
