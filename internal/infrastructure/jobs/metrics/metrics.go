// Package metrics implements the observability collaborator the core
// runtime package declares as its Metrics interface, backed by Prometheus
// the way the teacher's HTTP metrics collector is.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements runtime.Metrics using Prometheus counters and a
// histogram keyed by job name.
type Collector struct {
	claimed   *prometheus.CounterVec
	processed *prometheus.CounterVec
	retries   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	queueSize prometheus.Gauge
}

// NewCollector creates and registers the job pipeline's Prometheus metrics.
func NewCollector() *Collector {
	return &Collector{
		claimed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "go_mvc",
				Subsystem: "jobs",
				Name:      "claimed_total",
				Help:      "Total number of jobs claimed by a worker",
			},
			[]string{"job_name"},
		),

		processed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "go_mvc",
				Subsystem: "jobs",
				Name:      "processed_total",
				Help:      "Total number of jobs processed, by outcome",
			},
			[]string{"job_name", "status"},
		),

		retries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "go_mvc",
				Subsystem: "jobs",
				Name:      "retries_scheduled_total",
				Help:      "Total number of failures that scheduled a retry",
			},
			[]string{"job_name"},
		),

		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "go_mvc",
				Subsystem: "jobs",
				Name:      "execution_duration_seconds",
				Help:      "Time taken to execute a job handler",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
			[]string{"job_name", "status"},
		),

		queueSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "go_mvc",
				Subsystem: "jobs",
				Name:      "queue_depth",
				Help:      "Current number of jobs waiting in the bounded in-process queue",
			},
		),
	}
}

// JobClaimed records that a worker claimed a job for execution.
func (c *Collector) JobClaimed(name string) {
	c.claimed.WithLabelValues(name).Inc()
}

// JobSucceeded records a successful handler execution and its duration.
func (c *Collector) JobSucceeded(name string, duration time.Duration) {
	c.processed.WithLabelValues(name, "success").Inc()
	c.duration.WithLabelValues(name, "success").Observe(duration.Seconds())
}

// JobFailed records a failed handler execution, its duration, and whether
// the failure scheduled a retry or terminated the job.
func (c *Collector) JobFailed(name string, duration time.Duration, willRetry bool) {
	c.processed.WithLabelValues(name, "failure").Inc()
	c.duration.WithLabelValues(name, "failure").Observe(duration.Seconds())
	if willRetry {
		c.retries.WithLabelValues(name).Inc()
	}
}

// SetQueueDepth reports the current size of the bounded in-process queue.
func (c *Collector) SetQueueDepth(size int) {
	c.queueSize.Set(float64(size))
}
