package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	planLatency    *prometheus.HistogramVec
	plansComputed  *prometheus.CounterVec
	plantsRankedMx prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Histogram) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plan_compute_latency_seconds",
			Help:    "Time spent computing a production plan",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
		[]string{"outcome"},
	)
	computed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plans_computed_total",
			Help: "Number of production plans computed",
		},
		[]string{"outcome"},
	)
	ranked := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plan_dispatchable_plants",
			Help:    "Number of dispatchable plants in the merit order of a plan",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
	)
	return lat, computed, ranked
}

func init() {
	planLatency, plansComputed, plantsRankedMx = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers planner metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(planLatency, plansComputed, plantsRankedMx)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	planLatency, plansComputed, plantsRankedMx = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
