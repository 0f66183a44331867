package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cubemix/internal/catalog"
	"cubemix/internal/composite"
	"cubemix/internal/config"
	"cubemix/internal/whitebalance"
)

// gradingFlags are shared by export and preview. Opacity and white balance
// fall back to the [grading] config section unless set on the command line.
type gradingFlags struct {
	primary          string
	secondary        string
	primaryOpacity   float64
	secondaryOpacity float64
	whiteBalance     float64
}

func (g *gradingFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&g.primary, "primary", "p", "", "Primary LUT: catalog name or path to a .cube file")
	flags.StringVarP(&g.secondary, "secondary", "s", "", "Secondary LUT: catalog name or path to a .cube file")
	flags.Float64Var(&g.primaryOpacity, "primary-opacity", 1, "Primary LUT opacity, 0..1")
	flags.Float64Var(&g.secondaryOpacity, "secondary-opacity", 1, "Secondary LUT opacity, 0..1")
	flags.Float64Var(&g.whiteBalance, "white-balance", 0, "White balance, -10 (cool) .. 10 (warm)")
}

// effective fills unset flags from cfg.
func (g gradingFlags) effective(cmd *cobra.Command, cfg *config.Config) gradingFlags {
	flags := cmd.Flags()
	if !flags.Changed("primary-opacity") {
		g.primaryOpacity = cfg.Grading.PrimaryOpacity
	}
	if !flags.Changed("secondary-opacity") {
		g.secondaryOpacity = cfg.Grading.SecondaryOpacity
	}
	if !flags.Changed("white-balance") {
		g.whiteBalance = float64(cfg.WhiteBalance())
	}
	return g
}

// buildTransform loads the selected LUTs into a fresh slot set and returns
// its snapshot.
func (c *commandContext) buildTransform(g gradingFlags) (composite.Transform, error) {
	slots := composite.NewSlots()
	resolver := lutResolver{ctx: c}

	for _, sel := range []struct {
		slot    composite.Slot
		ref     string
		opacity float64
	}{
		{composite.SlotPrimary, g.primary, g.primaryOpacity},
		{composite.SlotSecondary, g.secondary, g.secondaryOpacity},
	} {
		if strings.TrimSpace(sel.ref) == "" {
			continue
		}
		name, data, err := resolver.read(sel.ref)
		if err != nil {
			return composite.Transform{}, err
		}
		if _, err := slots.Load(sel.slot, name, data); err != nil {
			return composite.Transform{}, err
		}
		slots.SetOpacity(sel.slot, float32(sel.opacity))
	}
	slots.SetWhiteBalance(whitebalance.Adjustment(g.whiteBalance).Clamp())

	transform, _ := slots.Snapshot()
	return transform, nil
}

// lutResolver turns a LUT reference into bytes. Paths win over catalog
// names; the catalog is only scanned when a reference is not a file.
type lutResolver struct {
	ctx     *commandContext
	catalog *catalog.Catalog
}

func (r *lutResolver) read(ref string) (string, []byte, error) {
	ref = strings.TrimSpace(ref)
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		data, err := os.ReadFile(ref)
		if err != nil {
			return "", nil, fmt.Errorf("read lut %q: %w", ref, err)
		}
		base := filepath.Base(ref)
		return strings.TrimSuffix(base, filepath.Ext(base)), data, nil
	}

	if r.catalog == nil {
		cat, err := r.ctx.loadCatalog()
		if err != nil {
			return "", nil, fmt.Errorf("lut %q is not a file and the catalog is unavailable: %w", ref, err)
		}
		r.catalog = cat
	}
	data, entry, err := r.catalog.ReadFile(ref)
	if errors.Is(err, catalog.ErrNotFound) {
		return "", nil, fmt.Errorf("lut %q not found as a file or in catalog %s", ref, r.catalog.Dir)
	}
	if err != nil {
		return "", nil, err
	}
	return entry.Name, data, nil
}
