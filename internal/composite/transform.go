// Package composite chains the white-balance, primary and secondary LUT stages
// into a single per-pixel transform and tracks which tables are selected.
package composite

import (
	"cubemix/internal/lut"
	"cubemix/internal/whitebalance"
)

// PixelTransform maps one colour to another. Implementations are pure.
type PixelTransform func(lut.RGB) lut.RGB

// Identity passes colours through unchanged.
func Identity(c lut.RGB) lut.RGB { return c }

// Stage is one LUT layer. A nil *Stage is skipped; a Stage with Opacity 0
// still samples its table and blends the result away.
type Stage struct {
	Name    string
	Table   *lut.Table
	Opacity float32
}

// Transform is the full grading chain. It only holds references and scalars,
// so copying and rebuilding it is cheap.
type Transform struct {
	Primary      *Stage
	Secondary    *Stage
	WhiteBalance whitebalance.Adjustment
}

// IsIdentity reports whether Build(t) would return Identity.
func (t Transform) IsIdentity() bool {
	return !usable(t.Primary) && !usable(t.Secondary) && t.WhiteBalance.IsNeutral()
}

// SecondaryName returns the secondary stage name, or "" when absent.
func (t Transform) SecondaryName() string {
	if !usable(t.Secondary) {
		return ""
	}
	return t.Secondary.Name
}

// Build closes over t and returns the pixel transform. The order is fixed:
// white balance, primary, secondary. Opacities are clamped to [0, 1] here so
// the returned function does no validation per pixel.
func Build(t Transform) PixelTransform {
	wb := whitebalance.NewFilter(t.WhiteBalance)
	primary, hasPrimary := resolve(t.Primary)
	secondary, hasSecondary := resolve(t.Secondary)

	if !wb.Active() && !hasPrimary && !hasSecondary {
		return Identity
	}

	return func(c lut.RGB) lut.RGB {
		working := c
		if wb.Active() {
			working = wb.Apply(working)
		}
		if hasPrimary {
			working = lut.Lerp(working, primary.table.Sample(working), primary.opacity)
		}
		if hasSecondary {
			working = lut.Lerp(working, secondary.table.Sample(working), secondary.opacity)
		}
		return working
	}
}

type resolvedStage struct {
	table   *lut.Table
	opacity float32
}

func resolve(s *Stage) (resolvedStage, bool) {
	if !usable(s) {
		return resolvedStage{}, false
	}
	return resolvedStage{table: s.Table, opacity: ClampOpacity(s.Opacity)}, true
}

func usable(s *Stage) bool {
	return s != nil && s.Table != nil
}

// ClampOpacity limits v to [0, 1]. NaN becomes 0.
func ClampOpacity(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v >= 0:
		return v
	default:
		return 0
	}
}
