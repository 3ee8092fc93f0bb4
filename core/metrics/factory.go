package metrics

import (
	"fmt"

	"github.com/kilianp07/powerplan/core/factory"
)

// sinkTypes holds the sink types known to NewMetricsSink. infra/metrics
// registers nop, prometheus and influx from its init function.
var sinkTypes = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available under name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkTypes.Register(name, f)
}

// NewMetricsSink builds the sinks listed in cfgs. No entry yields NopSink,
// a single entry is returned unwrapped and several are fanned out through
// a MultiSink. Sinks built before a failing entry are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	built := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkTypes.Create(c)
		if err != nil {
			for _, b := range built {
				_ = Close(b)
			}
			return nil, fmt.Errorf("sinks[%d] (%s): %w", i, c.Type, err)
		}
		built = append(built, s)
	}
	if len(built) == 1 {
		return built[0], nil
	}
	return NewMultiSink(built...), nil
}
