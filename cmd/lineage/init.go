package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage/internal/application/handlers"
	"github.com/ersonp/lineage/internal/infrastructure/config"
	"github.com/ersonp/lineage/internal/infrastructure/relationaldb"
)

func newInitCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new lineage project",
		Long:  "Creates a .lineage directory with default configuration, creates the schema and seeds the default catalogs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, flags)
		},
	}
}

func runInit(cmd *cobra.Command, flags *globalFlags) error {
	basePath, err := flags.basePath()
	if err != nil {
		return err
	}
	if err := setupLogging(config.Default(), flags); err != nil {
		return err
	}

	result, err := handlers.NewInitHandler(relationaldb.Open).Handle(cmd.Context(), basePath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", result.ConfigPath)
	fmt.Fprintf(out, "Store backend: %s\n", result.Backend)
	fmt.Fprintf(out, "Seeded %d family roles, %d relationship types, %d reference items\n",
		result.Seeded.FamilyRoles, result.Seeded.RelationshipTypes, result.Seeded.References)
	fmt.Fprintln(out, "Lineage initialized successfully!")
	return nil
}
