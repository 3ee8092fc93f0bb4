package productionplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/kilianp07/powerplan/core/model"
)

// ErrMalformed is returned when a payload cannot be turned into a LoadRequest.
var ErrMalformed = errors.New("malformed payload")

// MaxPayloadBytes bounds the size of an accepted request body.
const MaxPayloadBytes = 1 << 20

type fuelsPayload struct {
	Gas      *float64 `json:"gas(euro/MWh)"`
	Kerosine *float64 `json:"kerosine(euro/MWh)"`
	CO2      *float64 `json:"co2(euro/ton)"`
	Wind     *float64 `json:"wind(%)"`
}

type plantPayload struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Efficiency *float64 `json:"efficiency"`
	PMin       *float64 `json:"pmin"`
	PMax       *float64 `json:"pmax"`
}

type payload struct {
	RequestID   string         `json:"request_id"`
	Load        *float64       `json:"load"`
	Fuels       *fuelsPayload  `json:"fuels"`
	Powerplants []plantPayload `json:"powerplants"`
}

// Request is a decoded production plan request. RequestID is only used by
// the MQTT transport to correlate replies.
type Request struct {
	RequestID string
	Load      model.LoadRequest
}

// Decode reads a production plan payload. A missing CO2 price falls back to
// defaultCO2. Every error wraps ErrMalformed.
func Decode(r io.Reader, defaultCO2 float64) (Request, error) {
	var p payload
	dec := json.NewDecoder(io.LimitReader(r, MaxPayloadBytes))
	if err := dec.Decode(&p); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p.toRequest(defaultCO2)
}

// DecodeBytes is Decode for an in-memory payload.
func DecodeBytes(b []byte, defaultCO2 float64) (Request, error) {
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return p.toRequest(defaultCO2)
}

func (p payload) toRequest(defaultCO2 float64) (Request, error) {
	if p.Load == nil {
		return Request{}, missing("load")
	}
	if err := nonNegative("load", *p.Load); err != nil {
		return Request{}, err
	}
	if p.Fuels == nil {
		return Request{}, missing("fuels")
	}
	fuels, err := p.Fuels.toFuels(defaultCO2)
	if err != nil {
		return Request{}, err
	}
	if p.Powerplants == nil {
		return Request{}, missing("powerplants")
	}
	plants := make([]model.Powerplant, len(p.Powerplants))
	for i, pp := range p.Powerplants {
		plant, err := pp.toPowerplant(i)
		if err != nil {
			return Request{}, err
		}
		plants[i] = plant
	}
	return Request{
		RequestID: p.RequestID,
		Load:      model.LoadRequest{Load: *p.Load, Fuels: fuels, Powerplants: plants},
	}, nil
}

func (f fuelsPayload) toFuels(defaultCO2 float64) (model.Fuels, error) {
	co2 := defaultCO2
	if f.CO2 != nil {
		co2 = *f.CO2
	}
	fields := []struct {
		name string
		v    *float64
	}{
		{"fuels.gas(euro/MWh)", f.Gas},
		{"fuels.kerosine(euro/MWh)", f.Kerosine},
		{"fuels.co2(euro/ton)", &co2},
		{"fuels.wind(%)", f.Wind},
	}
	for _, fd := range fields {
		if fd.v == nil {
			return model.Fuels{}, missing(fd.name)
		}
		if err := nonNegative(fd.name, *fd.v); err != nil {
			return model.Fuels{}, err
		}
	}
	if *f.Wind > 100 {
		return model.Fuels{}, fmt.Errorf("%w: fuels.wind(%%) must not exceed 100", ErrMalformed)
	}
	return model.Fuels{
		GasEuroMWh:      *f.Gas,
		KerosineEuroMWh: *f.Kerosine,
		CO2EuroTon:      co2,
		WindPercent:     *f.Wind,
	}, nil
}

func (pp plantPayload) toPowerplant(i int) (model.Powerplant, error) {
	field := func(name string) string { return fmt.Sprintf("powerplants[%d].%s", i, name) }
	if pp.Name == "" {
		return model.Powerplant{}, missing(field("name"))
	}
	if pp.Type == "" {
		return model.Powerplant{}, missing(field("type"))
	}
	pt, ok := model.ParsePlantType(pp.Type)
	if !ok {
		return model.Powerplant{}, fmt.Errorf("%w: %s: unknown type %q", ErrMalformed, field("type"), pp.Type)
	}
	if pp.PMax == nil {
		return model.Powerplant{}, missing(field("pmax"))
	}
	plant := model.Powerplant{Name: pp.Name, Type: pt, PMax: *pp.PMax}
	if pp.PMin != nil {
		plant.PMin = *pp.PMin
	}
	switch {
	case pp.Efficiency != nil:
		plant.Efficiency = *pp.Efficiency
	case pt.Dispatchable():
		return model.Powerplant{}, missing(field("efficiency"))
	}
	if err := nonNegative(field("pmin"), plant.PMin); err != nil {
		return model.Powerplant{}, err
	}
	if err := nonNegative(field("pmax"), plant.PMax); err != nil {
		return model.Powerplant{}, err
	}
	if err := nonNegative(field("efficiency"), plant.Efficiency); err != nil {
		return model.Powerplant{}, err
	}
	return plant, nil
}

func missing(name string) error {
	return fmt.Errorf("%w: missing field %s", ErrMalformed, name)
}

func nonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative number", ErrMalformed, name)
	}
	return nil
}
