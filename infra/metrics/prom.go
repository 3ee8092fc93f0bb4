package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/powerplan/core/metrics"
)

// PromSink exposes the last feasible production plan as Prometheus gauges.
// Request counts and latencies are collected by the plan manager itself
// (plans_computed_total, plan_compute_latency_seconds).
type PromSink struct {
	cost   prometheus.Gauge
	load   prometheus.Gauge
	output *prometheus.GaugeVec
}

// NewPromSink registers plan metrics on the default Prometheus registerer.
// The metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cost := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "production_plan_cost_euros",
		Help: "Hourly cost of the last feasible production plan",
	})
	load := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "production_plan_load_mw",
		Help: "Load of the last feasible production plan",
	})
	output := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plant_output_mw",
		Help: "Output assigned to each powerplant by the last feasible plan",
	}, []string{"plant", "type"})

	var err error
	if cost, err = register(reg, cost); err != nil {
		return nil, err
	}
	if load, err = register(reg, load); err != nil {
		return nil, err
	}
	if output, err = register(reg, output); err != nil {
		return nil, err
	}
	return &PromSink{cost: cost, load: load, output: output}, nil
}

// register returns the already registered collector when c was registered before.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlan updates the gauges for feasible plans and ignores the others.
func (s *PromSink) RecordPlan(ev coremetrics.PlanEvent) error {
	if ev.Outcome != coremetrics.OutcomeOK {
		return nil
	}
	s.cost.Set(ev.TotalCost)
	s.load.Set(ev.LoadMW)
	for _, p := range ev.Plants {
		s.output.WithLabelValues(p.Name, p.Type).Set(p.PowerMW)
	}
	return nil
}
