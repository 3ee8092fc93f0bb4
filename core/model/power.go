package model

import (
	"fmt"
	"math"
)

// Tenths is a power value in tenths of a megawatt. All allocations are held in
// this representation so that rounding to 0.1 MW and the final load check are
// exact integer operations.
type Tenths int64

// MaxMW bounds the load and plant ratings accepted for planning. Sums of
// values below it stay far from the int64 range of Tenths.
const MaxMW = 1e12

// FromMW rounds a megawatt value to the nearest 0.1 MW, halves away from zero.
func FromMW(mw float64) Tenths {
	return Tenths(math.Round(mw * 10))
}

// MW returns the value in megawatts.
func (t Tenths) MW() float64 { return float64(t) / 10 }

// String renders the value with exactly one decimal digit.
func (t Tenths) String() string {
	sign := ""
	v := int64(t)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%d", sign, v/10, v%10)
}

// MarshalJSON encodes the value as a JSON number with one decimal, e.g. 90.0.
func (t Tenths) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

// SumTenths adds the given values.
func SumTenths(vals ...Tenths) Tenths {
	var s Tenths
	for _, v := range vals {
		s += v
	}
	return s
}
