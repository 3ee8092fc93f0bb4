package dispatch

import "github.com/kilianp07/powerplan/core/model"

// WindOutput returns the output of a wind plant at the given wind availability
// percentage, rounded to 0.1 MW. pmin does not apply to wind.
func WindOutput(p model.Powerplant, windPercent float64) model.Tenths {
	return model.FromMW(p.PMax * (windPercent / 100))
}

// allocateWind writes the output of every wind plant into out, indexed like
// plants, and returns the wind total.
func allocateWind(plants []model.Powerplant, windPercent float64, out []model.Tenths) model.Tenths {
	var total model.Tenths
	for i, p := range plants {
		if p.Type != model.PlantWind {
			continue
		}
		out[i] = WindOutput(p, windPercent)
		total += out[i]
	}
	return total
}
