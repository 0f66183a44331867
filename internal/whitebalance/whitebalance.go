// Package whitebalance implements the colour-temperature pre-transform applied
// ahead of the LUT stages.
//
// An Adjustment carries two Kelvin mappings. DisplayKelvin is the number shown
// to people; GainTemperature drives the pixel math. They intentionally differ.
package whitebalance

import (
	"fmt"
	"math"

	"cubemix/internal/lut"
)

const (
	Min Adjustment = -10
	Max Adjustment = 10

	displayBaseKelvin = 5500
	displayStepKelvin = 280
	gainBaseKelvin    = 6500
	gainStepKelvin    = 100
)

// Adjustment is the perceptual white-balance slider value in [Min, Max].
type Adjustment float64

// Clamp limits a to [Min, Max]. NaN becomes 0.
func (a Adjustment) Clamp() Adjustment {
	switch {
	case a > Max:
		return Max
	case a < Min:
		return Min
	case math.IsNaN(float64(a)):
		return 0
	default:
		return a
	}
}

// IsNeutral reports whether the adjustment leaves pixels untouched.
func (a Adjustment) IsNeutral() bool {
	return a.Clamp() == 0
}

// DisplayKelvin is the label temperature: 5500 + a*280.
func (a Adjustment) DisplayKelvin() float64 {
	return displayBaseKelvin + float64(a.Clamp())*displayStepKelvin
}

// GainTemperature is the temperature fed to Gain: 6500 + a*100.
func (a Adjustment) GainTemperature() float64 {
	return gainBaseKelvin + float64(a.Clamp())*gainStepKelvin
}

// Label renders the display temperature, e.g. "6060K".
func (a Adjustment) Label() string {
	return fmt.Sprintf("%.0fK", a.DisplayKelvin())
}

// Gain approximates the black-body colour at kelvin as an RGB gain with each
// channel in [0, 1]. Breakpoints sit at 66 and 19 hundred Kelvin.
func Gain(kelvin float64) lut.RGB {
	t := kelvin / 100

	var r, g, b float64
	if t <= 66 {
		r = 255
		g = 99.4708025861*math.Log(t) - 161.1195681661
	} else {
		r = 329.698727446 * math.Pow(t-60, -0.1332047592)
		g = 288.1221695283 * math.Pow(t-60, -0.0755148492)
	}

	switch {
	case t >= 66:
		b = 255
	case t <= 19:
		b = 0
	default:
		b = 138.5177312231*math.Log(t-10) - 305.0447927307
	}

	return lut.RGB{
		R: unit(r / 255),
		G: unit(g / 255),
		B: unit(b / 255),
	}
}

func unit(v float64) float32 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}

// Apply multiplies c by the gain for a. A neutral adjustment returns c as is.
func Apply(c lut.RGB, a Adjustment) lut.RGB {
	if a.IsNeutral() {
		return c
	}
	return c.Mul(Gain(a.GainTemperature()))
}

// Filter is a white-balance stage with its gain computed once.
type Filter struct {
	adjustment Adjustment
	gain       lut.RGB
}

// NewFilter precomputes the gain for a.
func NewFilter(a Adjustment) Filter {
	a = a.Clamp()
	f := Filter{adjustment: a, gain: lut.RGB{R: 1, G: 1, B: 1}}
	if a != 0 {
		f.gain = Gain(a.GainTemperature())
	}
	return f
}

// Adjustment returns the clamped slider value the filter was built from.
func (f Filter) Adjustment() Adjustment { return f.adjustment }

// Gain returns the precomputed multiplier.
func (f Filter) Gain() lut.RGB { return f.gain }

// Active reports whether Apply changes pixels.
func (f Filter) Active() bool { return f.adjustment != 0 }

// Apply is Apply(c, f.Adjustment()) without recomputing the gain.
func (f Filter) Apply(c lut.RGB) lut.RGB {
	if f.adjustment == 0 {
		return c
	}
	return c.Mul(f.gain)
}
