// Package main provides the entry point for the lineage CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	dir   string
	debug bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "lineage",
		Short:         "A genealogical store with family projections and connected family trees",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newInitCmd(flags),
		newServeCmd(flags),
		newFamiliesCmd(flags),
		newFamilyCmd(flags),
		newPersonCmd(flags),
		newTreeCmd(flags),
		newRelateCmd(flags),
		newMarryCmd(flags),
		newImportCmd(flags),
	)

	return rootCmd
}
