package model

import (
	"fmt"
	"strings"
)

// PlantType identifies the generation technology of a powerplant.
type PlantType int

const (
	PlantUnknown PlantType = iota
	PlantWind
	PlantGas
	PlantTurbojet
)

// String returns the canonical name of the plant type.
func (t PlantType) String() string {
	switch t {
	case PlantWind:
		return "wind"
	case PlantGas:
		return "gas"
	case PlantTurbojet:
		return "turbojet"
	default:
		return "unknown"
	}
}

// ParsePlantType maps a type tag to a PlantType. The tags used by the public
// payload ("windturbine", "gasfired") are accepted next to the short names.
func ParsePlantType(s string) (PlantType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wind", "windturbine":
		return PlantWind, true
	case "gas", "gasfired":
		return PlantGas, true
	case "turbojet":
		return PlantTurbojet, true
	default:
		return PlantUnknown, false
	}
}

// Dispatchable reports whether the plant output is decided by merit order.
func (t PlantType) Dispatchable() bool {
	return t == PlantGas || t == PlantTurbojet
}

// Powerplant is one generation unit available for the plan.
type Powerplant struct {
	Name       string
	Type       PlantType
	Efficiency float64 // fraction in (0,1], ignored for wind
	PMin       float64 // minimum stable output in MW
	PMax       float64 // rated output in MW
}

// Validate checks the plant configuration.
func (p Powerplant) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Type == PlantUnknown {
		return fmt.Errorf("unknown type")
	}
	if p.PMin < 0 {
		return fmt.Errorf("pmin %.1f is negative", p.PMin)
	}
	// NaN and infinite ratings fail this check too.
	if !(p.PMax <= MaxMW) {
		return fmt.Errorf("pmax must be a number no greater than %.0f MW", MaxMW)
	}
	if p.PMin > p.PMax {
		return fmt.Errorf("pmin %.1f exceeds pmax %.1f", p.PMin, p.PMax)
	}
	// NaN fails the comparison below as well.
	if p.Type.Dispatchable() && !(p.Efficiency > 0) {
		return fmt.Errorf("efficiency must be positive")
	}
	return nil
}

// Fuels is the price snapshot for one planning request.
type Fuels struct {
	GasEuroMWh      float64
	KerosineEuroMWh float64
	CO2EuroTon      float64
	WindPercent     float64
}

// LoadRequest groups the inputs of one production plan computation.
type LoadRequest struct {
	Load        float64
	Fuels       Fuels
	Powerplants []Powerplant
}
