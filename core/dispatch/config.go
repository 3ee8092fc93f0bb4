package dispatch

import "fmt"

const (
	// DefaultCO2Ratio is the CO2 emitted per MWh produced by a gas-fired plant, in tons.
	DefaultCO2Ratio = 0.3
	// DefaultCO2Price is used when a request carries no CO2 price, in euro per ton.
	DefaultCO2Price = 20.0
)

// Config defines planner-related settings. These are deployment constants and
// never part of a planning request.
type Config struct {
	CO2Ratio        float64 `json:"co2_ratio"`
	CO2DefaultPrice float64 `json:"co2_default_price"`
}

// SetDefaults fills unset values. A zero ratio is treated as unset.
func (c *Config) SetDefaults() {
	if c.CO2Ratio == 0 {
		c.CO2Ratio = DefaultCO2Ratio
	}
	if c.CO2DefaultPrice == 0 {
		c.CO2DefaultPrice = DefaultCO2Price
	}
}

// Validate checks that the constants are usable.
func (c Config) Validate() error {
	if c.CO2Ratio < 0 {
		return fmt.Errorf("co2_ratio must not be negative")
	}
	if c.CO2DefaultPrice < 0 {
		return fmt.Errorf("co2_default_price must not be negative")
	}
	return nil
}
