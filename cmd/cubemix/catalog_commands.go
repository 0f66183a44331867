package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cubemix/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "List and manage the LUT catalog",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogAddCommand(ctx))
	return catalogCmd
}

type catalogEntryView struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Size        int    `json:"size"`
	Tint        string `json:"tint"`
	File        string `json:"file"`
}

type catalogView struct {
	Dir      string             `json:"dir"`
	Entries  []catalogEntryView `json:"entries"`
	Problems []string           `json:"problems,omitempty"`
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var category string
	var includeHidden bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the LUTs in the catalog directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			var filter catalog.Category
			if strings.TrimSpace(category) != "" {
				if filter, err = catalog.ParseCategory(category); err != nil {
					return err
				}
			}
			cat, err := catalog.Load(cfg.Paths.CatalogDir, catalog.Options{Logger: logger, IncludeHidden: includeHidden})
			if err != nil {
				return err
			}

			view := catalogView{Dir: cat.Dir, Entries: []catalogEntryView{}}
			for _, e := range cat.Entries {
				if filter != "" && e.Category != filter {
					continue
				}
				view.Entries = append(view.Entries, catalogEntryView{
					Name:        e.Name,
					DisplayName: e.DisplayName,
					Category:    string(e.Category),
					Size:        e.Size,
					Tint:        e.Tint,
					File:        e.File,
				})
			}
			for _, p := range cat.Problems {
				view.Problems = append(view.Problems, p.String())
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			if len(view.Entries) == 0 {
				fmt.Fprintf(out, "No LUTs in %s\n", cat.Dir)
			} else {
				rows := make([][]string, 0, len(view.Entries))
				for _, e := range view.Entries {
					rows = append(rows, []string{e.DisplayName, e.Category, strconv.Itoa(e.Size), e.Tint, e.Name})
				}
				fmt.Fprint(out, renderTable([]column{
					{header: "LUT"},
					{header: "Category"},
					{header: "Size", align: alignRight},
					{header: "Tint"},
					{header: "Name"},
				}, rows, fmt.Sprintf("%d LUTs", len(rows))))
			}
			colorize := isTerminal(cmd.ErrOrStderr())
			for _, p := range cat.Problems {
				fmt.Fprintln(cmd.ErrOrStderr(), renderStatusLine(p.File, statusWarn, p.Err.Error(), colorize))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list one category (technical, black & white, cinematic, vintage, creative)")
	cmd.Flags().BoolVar(&includeHidden, "all", false, "Include entries the manifest marks hidden")
	return cmd
}

func newCatalogAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "add <file.cube>",
		Short: "Validate a LUT and copy it into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entry, err := catalog.Add(cfg.Paths.CatalogDir, args[0], catalog.AddOptions{Name: name, Overwrite: overwrite})
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, catalogEntryView{
					Name:        entry.Name,
					DisplayName: entry.DisplayName,
					Category:    string(entry.Category),
					Size:        entry.Size,
					Tint:        entry.Tint,
					File:        entry.File,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s, %d^3) as %q\n", entry.File, entry.Category, entry.Size, entry.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "File name inside the catalog (default: source file name)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace a catalog file with the same name")
	return cmd
}
