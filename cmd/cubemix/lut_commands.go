package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cubemix/internal/catalog"
	"cubemix/internal/lut"
)

func newLUTCommand(ctx *commandContext) *cobra.Command {
	lutCmd := &cobra.Command{
		Use:   "lut",
		Short: "Inspect and generate .cube LUTs",
	}
	lutCmd.AddCommand(newLUTInspectCommand(ctx))
	lutCmd.AddCommand(newLUTIdentityCommand())
	return lutCmd
}

type lutInspection struct {
	Name     string  `json:"name"`
	Title    string  `json:"title,omitempty"`
	Size     int     `json:"size"`
	Entries  int     `json:"entries"`
	Min      float32 `json:"min"`
	Max      float32 `json:"max"`
	Category string  `json:"category"`
	Tint     string  `json:"tint"`
	Identity bool    `json:"identity"`
}

func newLUTInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file | catalog-name>",
		Short: "Parse a LUT and print its size, range and tint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := lutResolver{ctx: ctx}
			name, data, err := resolver.read(args[0])
			if err != nil {
				return err
			}
			table, err := lut.Parse(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}

			lo, hi := table.Range()
			info := lutInspection{
				Name:     name,
				Title:    table.Title(),
				Size:     table.Size(),
				Entries:  table.Len(),
				Min:      lo,
				Max:      hi,
				Category: string(catalog.InferCategory(name)),
				Tint:     catalog.Tint(table),
				Identity: isIdentity(table),
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, info)
			}
			rows := [][]string{
				{"Name", info.Name},
				{"Title", info.Title},
				{"Size", fmt.Sprintf("%d (%d entries)", info.Size, info.Entries)},
				{"Range", fmt.Sprintf("%.4f .. %.4f", info.Min, info.Max)},
				{"Category", info.Category},
				{"Mid-grey tint", info.Tint},
				{"Identity", yesNo(info.Identity)},
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]column{{header: "Field"}, {header: "Value"}}, rows))
			return nil
		},
	}
}

// isIdentity reports whether every grid point maps to itself within the
// precision .cube files are usually written with.
func isIdentity(t *lut.Table) bool {
	ref := lut.Identity(t.Size()).Entries()
	for i, c := range t.Entries() {
		d := ref[i]
		if abs32(c.R-d.R) > 1e-4 || abs32(c.G-d.G) > 1e-4 || abs32(c.B-d.B) > 1e-4 {
			return false
		}
	}
	return true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func newLUTIdentityCommand() *cobra.Command {
	var output string
	var title string

	cmd := &cobra.Command{
		Use:         "identity <size>",
		Short:       "Write an identity LUT of the given size",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || size < 2 || size > lut.MaxSize {
				return fmt.Errorf("size must be an integer between 2 and %d", lut.MaxSize)
			}
			table := lut.Identity(size)
			if title != "" {
				table = table.WithTitle(title)
			}
			if output == "" || output == "-" {
				return lut.Write(cmd.OutOrStdout(), table)
			}
			if err := os.WriteFile(output, lut.Marshal(table), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d^3 identity LUT to %s\n", size, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default stdout)")
	cmd.Flags().StringVar(&title, "title", "", "TITLE directive to embed")
	return cmd
}
