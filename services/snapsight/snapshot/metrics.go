// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// snapshotTracerName is the OTel tracer name for artifact store operations.
const snapshotTracerName = "snapsight.snapshot"

// Package-level Prometheus metrics for the artifact store.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// cacheLookupsTotal counts artifact cache lookups.
	//
	// Labels:
	//   - result: "hit", "miss" or "stale"
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapsight",
			Subsystem: "snapshot",
			Name:      "cache_lookups_total",
			Help:      "Total artifact cache lookups by result.",
		},
		[]string{"result"},
	)

	// cacheEvictionsTotal counts entries dropped by the cache.
	//
	// Labels:
	//   - reason: "capacity" or "reconfigure"
	cacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapsight",
			Subsystem: "snapshot",
			Name:      "cache_evictions_total",
			Help:      "Total artifact cache entries dropped by reason.",
		},
		[]string{"reason"},
	)

	// parseDuration measures artifact file parse time.
	//
	// Labels:
	//   - status: "success" or "error"
	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snapsight",
			Subsystem: "snapshot",
			Name:      "parse_duration_seconds",
			Help:      "Duration of artifact file parses in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"status"},
	)

	// readErrorsTotal counts stat/read failures on candidate artifacts.
	readErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snapsight",
			Subsystem: "snapshot",
			Name:      "read_errors_total",
			Help:      "Total artifact stat or read failures.",
		},
	)
)

func recordParse(status string, d time.Duration) {
	parseDuration.WithLabelValues(status).Observe(d.Seconds())
}
