package job

import (
	"fmt"
	"strings"
)

// Tier is a named encoding preset.
type Tier string

const (
	TierLow     Tier = "low"
	TierMedium  Tier = "medium"
	TierHigh    Tier = "high"
	TierMaximum Tier = "maximum"
)

// DefaultTier is used when configuration does not name one.
const DefaultTier = TierHigh

// Preset is the concrete encoding target behind a Tier. Zero MaxWidth and
// MaxHeight mean the source resolution is kept.
type Preset struct {
	BitrateKbps int
	MaxWidth    int
	MaxHeight   int
}

var presets = map[Tier]Preset{
	TierLow:     {BitrateKbps: 2500, MaxWidth: 1280, MaxHeight: 720},
	TierMedium:  {BitrateKbps: 6000, MaxWidth: 1920, MaxHeight: 1080},
	TierHigh:    {BitrateKbps: 12000, MaxWidth: 2560, MaxHeight: 1440},
	TierMaximum: {BitrateKbps: 45000},
}

// Tiers lists every tier from lowest to highest quality.
func Tiers() []Tier {
	return []Tier{TierLow, TierMedium, TierHigh, TierMaximum}
}

// ParseTier accepts a tier name in any case. An empty string yields
// DefaultTier.
func ParseTier(raw string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return DefaultTier, nil
	}
	tier := Tier(name)
	if _, ok := presets[tier]; !ok {
		return "", fmt.Errorf("unknown quality tier %q (want low, medium, high or maximum)", raw)
	}
	return tier, nil
}

// Preset returns the encoding target for t. Unknown tiers fall back to
// DefaultTier.
func (t Tier) Preset() Preset {
	if p, ok := presets[t]; ok {
		return p
	}
	return presets[DefaultTier]
}

// Capped reports whether the preset limits resolution.
func (p Preset) Capped() bool {
	return p.MaxWidth > 0 && p.MaxHeight > 0
}

// Fit scales width x height down to fit inside the cap, preserving aspect
// ratio. Frames already inside the cap, or uncapped presets, are unchanged.
func (p Preset) Fit(width, height int) (int, int) {
	if !p.Capped() || width <= 0 || height <= 0 {
		return width, height
	}
	if width <= p.MaxWidth && height <= p.MaxHeight {
		return width, height
	}
	w, h := p.MaxWidth, height*p.MaxWidth/width
	if h > p.MaxHeight {
		w, h = width*p.MaxHeight/height, p.MaxHeight
	}
	return max(w, 1), max(h, 1)
}
