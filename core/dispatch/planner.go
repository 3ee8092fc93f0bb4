package dispatch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/powerplan/core/model"
)

var (
	// ErrInvalidPlant is returned when a powerplant configuration cannot be planned.
	ErrInvalidPlant = errors.New("invalid powerplant")
	// ErrInvalidRequest is returned for requests the planner refuses outright.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInfeasible indicates the greedy allocation does not match the load exactly.
	ErrInfeasible = errors.New("unable to match the exact load")
)

// Allocation is the output assigned to one powerplant.
type Allocation struct {
	Name  string       `json:"name"`
	Power model.Tenths `json:"p"`
}

// Plan is a complete production plan. Allocations follow the request order
// and their sum equals Load.
type Plan struct {
	Load        model.Tenths
	Allocations []Allocation
	// CostPerMWh is aligned with Allocations; wind plants cost nothing.
	CostPerMWh []float64
	// MeritOrder lists the dispatchable plants from cheapest to most expensive.
	MeritOrder []string
}

// TotalCost returns the hourly cost of the plan in euro.
func (p Plan) TotalCost() float64 {
	if len(p.Allocations) == 0 {
		return 0
	}
	mw := make([]float64, len(p.Allocations))
	for i, a := range p.Allocations {
		mw[i] = a.Power.MW()
	}
	return floats.Dot(mw, p.CostPerMWh)
}

// Total returns the sum of all allocations.
func (p Plan) Total() model.Tenths {
	var s model.Tenths
	for _, a := range p.Allocations {
		s += a.Power
	}
	return s
}

// Planner computes production plans. It holds no mutable state and can be
// shared between goroutines.
type Planner struct {
	ranker CostRanker
}

// NewPlanner returns a planner for the given configuration.
func NewPlanner(cfg Config) Planner {
	cfg.SetDefaults()
	return Planner{ranker: NewCostRanker(cfg)}
}

// Plan allocates the requested load over the powerplants: wind first, then
// the dispatchable plants in merit order. It returns ErrInfeasible when the
// allocated total differs from the load and never returns a partial plan.
func (pl Planner) Plan(req model.LoadRequest) (Plan, error) {
	if err := validateRequest(req); err != nil {
		return Plan{}, err
	}
	load := model.FromMW(req.Load)
	outputs := make([]model.Tenths, len(req.Powerplants))

	wind := allocateWind(req.Powerplants, req.Fuels.WindPercent, outputs)
	units, err := pl.ranker.Rank(req.Powerplants, req.Fuels)
	if err != nil {
		return Plan{}, err
	}
	dispatched, _ := AllocateLoad(load-wind, units)

	costs := make([]float64, len(req.Powerplants))
	order := make([]string, len(units))
	for i, u := range units {
		outputs[u.Index] = dispatched[i]
		costs[u.Index] = u.CostPerMWh
		order[i] = u.Plant.Name
	}
	total := model.SumTenths(outputs...)
	if total != load {
		return Plan{}, fmt.Errorf("%w: allocated %s MW for a load of %s MW", ErrInfeasible, total, load)
	}

	plan := Plan{
		Load:        load,
		Allocations: make([]Allocation, len(req.Powerplants)),
		CostPerMWh:  costs,
		MeritOrder:  order,
	}
	for i, p := range req.Powerplants {
		plan.Allocations[i] = Allocation{Name: p.Name, Power: outputs[i]}
	}
	return plan, nil
}

func validateRequest(req model.LoadRequest) error {
	if math.IsNaN(req.Load) || req.Load < 0 {
		return fmt.Errorf("%w: load must be a non-negative number", ErrInvalidRequest)
	}
	if req.Load > model.MaxMW {
		return fmt.Errorf("%w: load exceeds %.0f MW", ErrInvalidRequest, model.MaxMW)
	}
	seen := make(map[string]struct{}, len(req.Powerplants))
	for _, p := range req.Powerplants {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w %s: %v", ErrInvalidPlant, p.Name, err)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w %s: duplicate name", ErrInvalidPlant, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
