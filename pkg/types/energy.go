package types

import "fmt"

// Joules is an amount of energy.
type Joules float64

// Watts is an amount of power.
type Watts float64

// Microjoules is a raw energy counter as exposed by powercap (energy_uj).
type Microjoules uint64

// Joules converts the counter value to Joules.
func (u Microjoules) Joules() Joules { return Joules(float64(u) / 1e6) }

// Humanized returns a human-readable string with automatic unit (mJ, J, kJ, MJ).
func (j Joules) Humanized() string {
	v := float64(j)
	a := v
	if a < 0 {
		a = -a
	}
	switch {
	case a >= 1e6:
		return fmt.Sprintf("%.2f MJ", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.2f kJ", v/1e3)
	case a >= 1 || a == 0:
		return fmt.Sprintf("%.2f J", v)
	default:
		return fmt.Sprintf("%.2f mJ", v*1e3)
	}
}

// WattHours returns the energy in watt-hours.
func (j Joules) WattHours() float64 { return float64(j) / 3600 }

// Humanized returns a human-readable string with automatic unit (mW, W, kW).
func (w Watts) Humanized() string {
	v := float64(w)
	a := v
	if a < 0 {
		a = -a
	}
	switch {
	case a >= 1e3:
		return fmt.Sprintf("%.2f kW", v/1e3)
	case a >= 1 || a == 0:
		return fmt.Sprintf("%.2f W", v)
	default:
		return fmt.Sprintf("%.2f mW", v*1e3)
	}
}

// Over returns the energy drawn at power w for the given number of seconds.
func (w Watts) Over(seconds float64) Joules { return Joules(float64(w) * seconds) }
