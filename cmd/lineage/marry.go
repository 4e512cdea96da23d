package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage/internal/application/handlers"
)

type marryFlags struct {
	endedOn   string
	endReason string
	notes     string
}

func newMarryCmd(flags *globalFlags) *cobra.Command {
	var mf marryFlags

	cmd := &cobra.Command{
		Use:   "marry <husband-id> <wife-id> <married-on>",
		Short: "Record a marriage",
		Long: `Records a marriage. Each person can be in at most one active marriage;
set --ended to record a past one.

End reasons: divorce, death, annulment.

Examples:
  lineage marry 4 9 2010-05-01
  lineage marry 4 7 2001-03-01 --ended 2008-06-30 --reason divorce`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarry(cmd, flags, args, mf)
		},
	}

	cmd.Flags().StringVar(&mf.endedOn, "ended", "", "End date for a historical marriage (YYYY-MM-DD)")
	cmd.Flags().StringVar(&mf.endReason, "reason", "", "End reason code")
	cmd.Flags().StringVar(&mf.notes, "notes", "", "Free-form notes")

	cmd.AddCommand(newMarryEndCmd(flags))

	return cmd
}

func runMarry(cmd *cobra.Command, flags *globalFlags, args []string, mf marryFlags) error {
	ctx := cmd.Context()
	husbandID, err := parseID("husband_id", args[0])
	if err != nil {
		return err
	}
	wifeID, err := parseID("wife_id", args[1])
	if err != nil {
		return err
	}

	return withDeps(ctx, flags, func(d *Deps) error {
		m, err := d.Marriages.HandleCreate(ctx, handlers.MarryRequest{
			HusbandID: husbandID,
			WifeID:    wifeID,
			MarriedOn: args[2],
			EndedOn:   mf.endedOn,
			EndReason: mf.endReason,
			Notes:     mf.notes,
		})
		if err != nil {
			return fmt.Errorf("creating marriage: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created marriage: %d\n", m.ID)
		return nil
	})
}

func newMarryEndCmd(flags *globalFlags) *cobra.Command {
	var (
		reason string
		notes  string
	)

	cmd := &cobra.Command{
		Use:   "end <marriage-id> <ended-on>",
		Short: "End an active marriage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID("marriage_id", args[0])
			if err != nil {
				return err
			}
			return withDeps(ctx, flags, func(d *Deps) error {
				_, err := d.Marriages.HandleEnd(ctx, handlers.EndMarriageRequest{
					ID:        id,
					EndedOn:   args[1],
					EndReason: reason,
					Notes:     notes,
				})
				if err != nil {
					return fmt.Errorf("ending marriage: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ended marriage %d on %s\n", id, args[1])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "End reason code (divorce, death, annulment)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")

	return cmd
}
