package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/powerplan/core/logger"
	"github.com/kilianp07/powerplan/core/metrics"
	"github.com/kilianp07/powerplan/core/model"
	"github.com/kilianp07/powerplan/core/monitoring"
)

// EventPublisher receives every plan event. It is satisfied by
// eventbus.Bus[metrics.PlanEvent].
type EventPublisher interface {
	Publish(metrics.PlanEvent) int
}

// Result is the outcome of a managed plan computation. ID is set even when
// planning fails so that callers can correlate logs and replies.
type Result struct {
	ID   string
	Plan Plan
}

// PlanManager wraps a Planner with identifiers, logging, metrics and event
// publication. It is safe for concurrent use.
type PlanManager struct {
	planner Planner
	metrics metrics.MetricsSink
	bus     EventPublisher
	logger  logger.Logger
	now     func() time.Time
	newID   func() string
}

// NewPlanManager creates a new manager. sink and bus are optional.
func NewPlanManager(planner Planner, sink metrics.MetricsSink, bus EventPublisher, log logger.Logger) (*PlanManager, error) {
	if log == nil {
		return nil, fmt.Errorf("dispatch: nil logger provided to NewPlanManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &PlanManager{
		planner: planner,
		metrics: sink,
		bus:     bus,
		logger:  log,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Plan computes the production plan for req.
func (m *PlanManager) Plan(req model.LoadRequest) (Result, error) {
	res := Result{ID: m.newID()}
	start := m.now()
	plan, err := m.planner.Plan(req)
	elapsed := m.now().Sub(start)

	outcome := outcomeOf(err)
	planLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
	plansComputed.WithLabelValues(outcome).Inc()

	ev := metrics.PlanEvent{
		PlanID:   res.ID,
		LoadMW:   req.Load,
		Outcome:  outcome,
		Duration: elapsed,
		Time:     start,
	}
	if err != nil {
		ev.Error = err.Error()
		m.logger.Warnf("plan %s rejected (%s): %v", res.ID, outcome, err)
	} else {
		res.Plan = plan
		plantsRankedMx.Observe(float64(len(plan.MeritOrder)))
		ev.Plants = plantOutputs(req.Powerplants, plan)
		ev.TotalCost = plan.TotalCost()
		m.logger.Infow("plan computed", map[string]any{
			"plan_id":     res.ID,
			"load_mw":     plan.Load.MW(),
			"plants":      len(plan.Allocations),
			"merit_order": plan.MeritOrder,
			"cost_eur_h":  ev.TotalCost,
		})
	}
	if err := m.metrics.RecordPlan(ev); err != nil {
		m.logger.Errorf("metrics error: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "plan-manager", "plan_id": res.ID})
	}
	if m.bus != nil {
		m.bus.Publish(ev)
	}
	return res, err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrInfeasible):
		return metrics.OutcomeInfeasible
	default:
		return metrics.OutcomeInvalid
	}
}

func plantOutputs(plants []model.Powerplant, plan Plan) []metrics.PlantOutput {
	out := make([]metrics.PlantOutput, len(plan.Allocations))
	for i, a := range plan.Allocations {
		out[i] = metrics.PlantOutput{
			Name:       a.Name,
			Type:       plants[i].Type.String(),
			PowerMW:    a.Power.MW(),
			CostPerMWh: plan.CostPerMWh[i],
		}
	}
	return out
}
