// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirefeed_dispatch_total",
			Help: "Total notification send attempts by status.",
		},
		[]string{"status"},
	)
	sendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wirefeed_dispatch_duration_seconds",
			Help:    "Duration of notification send requests, including rate limiter waits.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
)

const (
	statusOK          = "ok"
	statusError       = "error"
	statusRateLimited = "rate_limited"
)
