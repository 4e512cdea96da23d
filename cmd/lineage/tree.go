package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage/internal/application/handlers"
	"github.com/ersonp/lineage/internal/domain/services"
)

type treeFlags struct {
	readFlags
	maxFamilies int
	timeout     time.Duration
}

func newTreeCmd(flags *globalFlags) *cobra.Command {
	var tf treeFlags

	cmd := &cobra.Command{
		Use:   "tree <family-id>",
		Short: "Show every family connected to a family through shared members",
		Long: `Walks the family graph breadth-first from the given family. Two families
are connected when a person belongs to both.

The walk stops early at --max-families or --timeout; both can only lower
the limits in the tree section of the config. A stopped walk is reported
as truncated.

Examples:
  lineage tree 12
  lineage tree 12 --include-inactive --json
  lineage tree 12 --max-families 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, flags, args[0], tf)
		},
	}
	tf.register(cmd)
	cmd.Flags().IntVar(&tf.maxFamilies, "max-families", 0, "Stop after visiting this many families")
	cmd.Flags().DurationVar(&tf.timeout, "timeout", 0, "Stop after this long")

	return cmd
}

func runTree(cmd *cobra.Command, flags *globalFlags, rawID string, tf treeFlags) error {
	ctx := cmd.Context()
	id, err := parseID("family_id", rawID)
	if err != nil {
		return err
	}
	if tf.maxFamilies < 0 {
		return fmt.Errorf("--max-families must not be negative")
	}

	return withDeps(ctx, flags, func(d *Deps) error {
		tree, err := d.Families.HandleTree(ctx, handlers.TreeRequest{
			FamilyID:        id,
			IncludeInactive: strconv.FormatBool(tf.includeInactive),
			MaxFamilies:     tf.maxFamilies,
			Timeout:         tf.timeout,
		})
		if err != nil {
			return fmt.Errorf("building family tree: %w", err)
		}

		out := cmd.OutOrStdout()
		if tf.json {
			return writeJSON(out, tree)
		}
		displayTree(out, tree)
		return nil
	})
}

func displayTree(w io.Writer, tree *services.TreeResult) {
	fmt.Fprintf(w, "Family tree from #%d: %d families", tree.RootFamilyID, tree.FamilyCount)
	if tree.Truncated {
		fmt.Fprintf(w, " (truncated: %s)", tree.TruncatedReason)
	}
	fmt.Fprint(w, "\n\n")

	for _, f := range tree.Families {
		displayFamilySummary(w, f)
	}

	if len(tree.Connections) == 0 {
		return
	}
	fmt.Fprintln(w, "\nConnections:")
	for _, c := range tree.Connections {
		primary := ""
		if c.IsPrimaryInToFamily {
			primary = ", primary"
		}
		fmt.Fprintf(w, "  %s (#%d): #%d -> #%d as %s%s\n",
			c.PersonFullName, c.PersonID, c.FromFamilyID, c.ToFamilyID, c.RoleInToFamilyName, primary)
	}
}
