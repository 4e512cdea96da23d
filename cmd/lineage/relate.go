package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage/internal/application/handlers"
)

type relateFlags struct {
	startedOn string
	endedOn   string
	notes     string
}

func newRelateCmd(flags *globalFlags) *cobra.Command {
	var rf relateFlags

	cmd := &cobra.Command{
		Use:   "relate <person-id> <partner-id> <type>",
		Short: "Create a relationship between two people",
		Long: `Creates a symmetric relationship. A pair can hold at most one active
relationship of each type; set --ended to record a past one.

Default types: dating, engaged, partner, friend, cohabiting.

Examples:
  lineage relate 4 9 dating --started 2019-02-14
  lineage relate 4 9 engaged --started 2016-01-01 --ended 2017-03-01`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelate(cmd, flags, args, rf)
		},
	}

	cmd.Flags().StringVar(&rf.startedOn, "started", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&rf.endedOn, "ended", "", "End date for a historical relationship (YYYY-MM-DD)")
	cmd.Flags().StringVar(&rf.notes, "notes", "", "Free-form notes")

	cmd.AddCommand(newRelateEndCmd(flags))

	return cmd
}

func runRelate(cmd *cobra.Command, flags *globalFlags, args []string, rf relateFlags) error {
	ctx := cmd.Context()
	personID, err := parseID("person_id", args[0])
	if err != nil {
		return err
	}
	partnerID, err := parseID("partner_id", args[1])
	if err != nil {
		return err
	}

	return withDeps(ctx, flags, func(d *Deps) error {
		rel, err := d.Relationships.HandleCreate(ctx, handlers.RelateRequest{
			PersonID:  personID,
			PartnerID: partnerID,
			Type:      args[2],
			StartedOn: rf.startedOn,
			EndedOn:   rf.endedOn,
			Notes:     rf.notes,
		})
		if err != nil {
			return fmt.Errorf("creating relationship: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created relationship: %d\n", rel.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "  #%d -[%s]- #%d\n", rel.PersonID, args[2], rel.PartnerID)
		return nil
	})
}

func newRelateEndCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "end <relationship-id> <ended-on>",
		Short: "End an active relationship",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID("relationship_id", args[0])
			if err != nil {
				return err
			}
			return withDeps(ctx, flags, func(d *Deps) error {
				if _, err := d.Relationships.HandleEnd(ctx, id, args[1]); err != nil {
					return fmt.Errorf("ending relationship: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ended relationship %d on %s\n", id, args[1])
				return nil
			})
		},
	}
}
