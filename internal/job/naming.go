package job

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// NameOpacity selects which stage's opacity the output name reports.
type NameOpacity string

const (
	NameOpacityPrimary   NameOpacity = "primary"
	NameOpacitySecondary NameOpacity = "secondary"
)

// ParseNameOpacity accepts "primary" or "secondary", case-insensitively.
// An empty value means primary.
func ParseNameOpacity(raw string) (NameOpacity, error) {
	switch n := NameOpacity(strings.ToLower(strings.TrimSpace(raw))); n {
	case "", NameOpacityPrimary:
		return NameOpacityPrimary, nil
	case NameOpacitySecondary:
		return n, nil
	default:
		return "", fmt.Errorf("unknown name opacity %q (want primary or secondary)", raw)
	}
}

// Pick returns the opacity the name should carry. Without a secondary LUT
// the secondary opacity means nothing, so the primary one is used.
func (n NameOpacity) Pick(primary, secondary float64, hasSecondary bool) float64 {
	if n == NameOpacitySecondary && hasSecondary {
		return secondary
	}
	return primary
}

// NoSecondLUT stands in for the secondary name when no secondary LUT is set.
const NoSecondLUT = "NoSecondLUT"

// OutputName builds the export file name
// <base>_converted_<secondary|NoSecondLUT>_<pct>percent.<ext>.
// The input directory and extension are dropped. opacity is clamped to [0, 1]
// and rounded to a whole percent. The result is deterministic; collision
// handling is the caller's concern.
func OutputName(input, secondary string, opacity float64, ext string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "output"
	}

	name := sanitizeComponent(strings.TrimSuffix(secondary, filepath.Ext(secondary)))
	if name == "" {
		name = NoSecondLUT
	}

	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "mov"
	}
	return fmt.Sprintf("%s_converted_%s_%dpercent.%s", base, name, opacityPercent(opacity), ext)
}

func opacityPercent(v float64) int {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return int(math.Round(v * 100))
}

// sanitizeComponent keeps a LUT name safe to embed in a file name.
func sanitizeComponent(s string) string {
	s = strings.TrimSpace(filepath.Base(strings.TrimSpace(s)))
	if s == "." || s == string(filepath.Separator) {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		case ' ':
			return '_'
		default:
			return r
		}
	}, s)
}
