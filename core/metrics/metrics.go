package metrics

import "time"

// Plan outcomes used as metric labels.
const (
	OutcomeOK         = "ok"
	OutcomeInfeasible = "infeasible"
	OutcomeInvalid    = "invalid"
)

// PlantOutput is the allocation of a single plant within a plan.
type PlantOutput struct {
	Name       string
	Type       string
	PowerMW    float64
	CostPerMWh float64
}

// PlanEvent describes one production plan computation.
type PlanEvent struct {
	PlanID    string
	LoadMW    float64
	Outcome   string
	Error     string
	Plants    []PlantOutput
	TotalCost float64
	Duration  time.Duration
	Time      time.Time
}

// MetricsSink records plan computations for observability purposes.
type MetricsSink interface {
	RecordPlan(ev PlanEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlan(PlanEvent) error { return nil }
