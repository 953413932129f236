// Copyright 2025 Brian Wang <wangbuke@gmail.com>
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports fixedpool statistics to Prometheus.
package metrics

import (
	"github.com/buke/fixedpool"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is implemented by *fixedpool.Pool.
type StatsSource interface {
	Stats() []fixedpool.WorkerStats
}

// Collector is a prometheus.Collector reading pool statistics on every scrape.
type Collector struct {
	source StatsSource

	workers    *prometheus.Desc
	queueDepth *prometheus.Desc
	executed   *prometheus.Desc
	lastUsed   *prometheus.Desc
}

// NewCollector returns a Collector for source. Metric names are prefixed with namespace.
func NewCollector(source StatsSource, namespace string) *Collector {
	return &Collector{
		source: source,
		workers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "workers"),
			"Number of workers in the pool.",
			nil, nil,
		),
		queueDepth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "queue_depth"),
			"Tasks queued on a worker, including the running one.",
			[]string{"worker"}, nil,
		),
		executed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "tasks_executed_total"),
			"Tasks completed by a worker.",
			[]string{"worker"}, nil,
		),
		lastUsed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pool", "last_task_timestamp_seconds"),
			"Unix time of the last task completed by a worker.",
			[]string{"worker"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workers
	ch <- c.queueDepth
	ch <- c.executed
	ch <- c.lastUsed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(len(stats)))
	for _, s := range stats {
		ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(s.QueueDepth), s.Name)
		ch <- prometheus.MustNewConstMetric(c.executed, prometheus.CounterValue, float64(s.Executed), s.Name)
		ch <- prometheus.MustNewConstMetric(c.lastUsed, prometheus.GaugeValue, float64(s.LastUsed.UnixNano())/1e9, s.Name)
	}
}

// Register creates a Collector for source and registers it with reg.
func Register(reg prometheus.Registerer, source StatsSource, namespace string) (*Collector, error) {
	c := NewCollector(source, namespace)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
