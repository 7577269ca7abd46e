// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirefeed_frames_total",
			Help: "Total frames drained from the capture source by decode outcome.",
		},
		[]string{"skip"},
	)
	itemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirefeed_items_total",
			Help: "Total decoded items by normalizer verdict.",
		},
		[]string{"verdict"},
	)
	droppedUnitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wirefeed_dropped_units_total",
			Help: "Total inner envelope units that failed to decode.",
		},
	)
	installsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirefeed_capture_installs_total",
			Help: "Total capture hook installs by result.",
		},
		[]string{"result"},
	)
	stateGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wirefeed_driver_state",
			Help: "Current pipeline driver state (0 idle, 1 armed, 2 draining, 3 stale).",
		},
	)
)
