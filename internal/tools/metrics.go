// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dispatchTotal counts dispatches.
	// Labels: tool, result (ok, error, unknown, panic)
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "investigator",
		Subsystem: "tool",
		Name:      "dispatch_total",
		Help:      "Total tool dispatches by outcome",
	}, []string{"tool", "result"})

	// dispatchDuration measures tool latency.
	// Labels: tool
	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "investigator",
		Subsystem: "tool",
		Name:      "dispatch_duration_seconds",
		Help:      "Tool dispatch latency in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"tool"})
)
