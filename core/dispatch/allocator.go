package dispatch

import (
	"math"

	"github.com/kilianp07/powerplan/core/model"
)

// AllocateLoad walks the merit order once and assigns each unit either zero or
// an output clamped to [pmin, pmax]. The returned outputs are aligned with
// units. The remaining residual is returned as well and may be negative.
func AllocateLoad(residual model.Tenths, units []DispatchableUnit) ([]model.Tenths, model.Tenths) {
	out := make([]model.Tenths, len(units))
	for i, u := range units {
		if residual <= 0 {
			continue
		}
		p := unitOutput(residual, u.Plant)
		out[i] = p
		residual -= p
	}
	return out, residual
}

// unitOutput is the rounded share of residual taken by p. A unit that cannot
// run at or above its minimum stable output stays off.
func unitOutput(residual model.Tenths, p model.Powerplant) model.Tenths {
	candidate := math.Min(p.PMax, math.Max(p.PMin, residual.MW()))
	rounded := model.FromMW(candidate)
	if rounded.MW() > p.PMax {
		rounded = model.Tenths(math.Floor(p.PMax * 10))
	}
	if rounded.MW() < p.PMin {
		return 0
	}
	return rounded
}
