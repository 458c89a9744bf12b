// Copyright (C) 2025 Nebula Labs (oss@nebulalabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the research
// service: run counters, pipeline stage latencies, retrieval volume, and
// active stream gauges. Metrics are exposed on /metrics and are safe for
// concurrent use via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace  = "nebula"
	researchSubsystem = "research"
)

// Metrics holds all Prometheus metrics for research runs. Initialize once
// at startup via NewMetrics; a nil *Metrics disables recording, which the
// helper methods tolerate so tests can pass nil.
type Metrics struct {
	// RunsTotal counts research runs by mode and terminal status.
	// Labels: mode (fast, thorough), status (success, error)
	RunsTotal *prometheus.CounterVec

	// StageDurationSeconds measures wall-clock time per pipeline stage.
	// Labels: stage (plan1, search1, fetch1, plan2, search2, fetch2,
	// rank, compress, synthesize, verify, cite)
	StageDurationSeconds *prometheus.HistogramVec

	// SearchQueriesTotal counts issued search queries by cache outcome.
	// Labels: outcome (hit, miss)
	SearchQueriesTotal *prometheus.CounterVec

	// FetchesTotal counts document fetch attempts by outcome.
	// Labels: outcome (success, dropped)
	FetchesTotal *prometheus.CounterVec

	// ActiveStreams tracks currently open event streams.
	ActiveStreams prometheus.Gauge
}

// NewMetrics registers the research metrics on a registerer (pass
// prometheus.DefaultRegisterer in production).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: researchSubsystem,
			Name:      "runs_total",
			Help:      "Research runs by mode and terminal status.",
		}, []string{"mode", "status"}),

		StageDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: researchSubsystem,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),

		SearchQueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: researchSubsystem,
			Name:      "search_queries_total",
			Help:      "Issued search queries by cache outcome.",
		}, []string{"outcome"}),

		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: researchSubsystem,
			Name:      "fetches_total",
			Help:      "Document fetch attempts by outcome.",
		}, []string{"outcome"}),

		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: researchSubsystem,
			Name:      "active_streams",
			Help:      "Currently open research event streams.",
		}),
	}
}

// ObserveStage records a stage duration. Nil-safe.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// CountRun records a run's terminal status. Nil-safe.
func (m *Metrics) CountRun(mode, status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(mode, status).Inc()
}

// CountSearch records a search cache outcome. Nil-safe.
func (m *Metrics) CountSearch(outcome string) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(outcome).Inc()
}

// CountFetch records a fetch outcome. Nil-safe.
func (m *Metrics) CountFetch(outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// StreamOpened and StreamClosed maintain the active stream gauge. Nil-safe.
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
}
