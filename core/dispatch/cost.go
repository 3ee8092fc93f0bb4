package dispatch

import (
	"fmt"
	"sort"

	"github.com/kilianp07/powerplan/core/model"
)

// DispatchableUnit is a gas-fired or turbojet plant annotated with its cost.
// Index is the position of the plant in the request.
type DispatchableUnit struct {
	Index      int
	Plant      model.Powerplant
	CostPerMWh float64
}

// CostRanker computes per-MWh costs and the merit order of dispatchable plants.
type CostRanker struct {
	co2Ratio float64
}

// NewCostRanker returns a ranker using the CO2 ratio of cfg.
func NewCostRanker(cfg Config) CostRanker {
	return CostRanker{co2Ratio: cfg.CO2Ratio}
}

// Cost returns the cost of producing one MWh with p.
// Gas-fired plants pay for fuel and emissions, turbojets only for kerosine.
func (r CostRanker) Cost(p model.Powerplant, f model.Fuels) (float64, error) {
	if !(p.Efficiency > 0) {
		return 0, fmt.Errorf("%w %s: efficiency must be positive", ErrInvalidPlant, p.Name)
	}
	switch p.Type {
	case model.PlantGas:
		return f.GasEuroMWh/p.Efficiency + r.co2Ratio*f.CO2EuroTon, nil
	case model.PlantTurbojet:
		return f.KerosineEuroMWh / p.Efficiency, nil
	default:
		return 0, fmt.Errorf("%w %s: %s plants have no fuel cost", ErrInvalidPlant, p.Name, p.Type)
	}
}

// Rank returns the dispatchable plants sorted by ascending cost. Plants with
// the same cost keep their request order.
func (r CostRanker) Rank(plants []model.Powerplant, f model.Fuels) ([]DispatchableUnit, error) {
	units := make([]DispatchableUnit, 0, len(plants))
	for i, p := range plants {
		if !p.Type.Dispatchable() {
			continue
		}
		c, err := r.Cost(p, f)
		if err != nil {
			return nil, err
		}
		units = append(units, DispatchableUnit{Index: i, Plant: p, CostPerMWh: c})
	}
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].CostPerMWh < units[j].CostPerMWh
	})
	return units, nil
}
