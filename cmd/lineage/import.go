package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage/internal/application/handlers"
)

type importFlags struct {
	format string
	dryRun bool
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var imf importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a seed document from JSON, YAML or CSV",
		Long: `Imports catalogs, people, families, relationships and marriages from a
seed document keyed by local string keys. Relationships and marriages go
through the same checks as the relate and marry commands. Records that
fail are reported and skipped; the rest are imported.

CSV files carry people only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, flags, args[0], imf)
		},
	}

	cmd.Flags().StringVarP(&imf.format, "format", "f", "auto", "File format (json, yaml, csv, auto)")
	cmd.Flags().BoolVar(&imf.dryRun, "dry-run", false, "Validate references without saving")

	return cmd
}

func runImport(cmd *cobra.Command, flags *globalFlags, filePath string, imf importFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withDeps(ctx, flags, func(d *Deps) error {
		fmt.Fprintf(out, "Importing %s...\n", filePath)

		result, err := d.Imports.Handle(ctx, filePath, handlers.ImportOptions{
			Format: imf.format,
			DryRun: imf.dryRun,
		})
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		if len(result.Errors) > 0 {
			fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s\n", e.Error())
			}
		}

		sections := make([]string, 0, len(result.Imported))
		for section := range result.Imported {
			sections = append(sections, section)
		}
		sort.Strings(sections)

		fmt.Fprintln(out)
		if imf.dryRun {
			fmt.Fprintf(out, "Dry run: %d records would be imported", result.Total())
		} else {
			fmt.Fprintf(out, "Imported: %d records", result.Total())
		}
		if len(result.Errors) > 0 {
			fmt.Fprintf(out, ", %d errors", len(result.Errors))
		}
		fmt.Fprintln(out)
		for _, section := range sections {
			fmt.Fprintf(out, "  %-20s %d\n", section, result.Imported[section])
		}
		return nil
	})
}
