package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage/internal/domain/services"
)

type readFlags struct {
	includeInactive bool
	json            bool
}

func (f *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.includeInactive, "include-inactive", "a", false, "Include inactive families")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print JSON instead of text")
}

func newFamiliesCmd(flags *globalFlags) *cobra.Command {
	var rf readFlags

	cmd := &cobra.Command{
		Use:   "families",
		Short: "List families",
		Long:  "Lists family projections ordered by surname components then id. Inactive families are hidden unless --include-inactive is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFamilies(cmd, flags, rf)
		},
	}
	rf.register(cmd)

	return cmd
}

func runFamilies(cmd *cobra.Command, flags *globalFlags, rf readFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, flags, func(d *Deps) error {
		result, err := d.Families.HandleList(ctx, strconv.FormatBool(rf.includeInactive))
		if err != nil {
			return fmt.Errorf("listing families: %w", err)
		}

		out := cmd.OutOrStdout()
		if rf.json {
			return writeJSON(out, result)
		}

		if result.Count == 0 {
			fmt.Fprintln(out, "No families found.")
			return nil
		}
		fmt.Fprintf(out, "Showing %d families:\n\n", result.Count)
		for _, f := range result.Families {
			displayFamilySummary(out, f)
		}
		return nil
	})
}

func newFamilyCmd(flags *globalFlags) *cobra.Command {
	var rf readFlags

	cmd := &cobra.Command{
		Use:   "family <family-id>",
		Short: "Show one family with its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFamily(cmd, flags, args[0], rf)
		},
	}
	rf.register(cmd)

	cmd.AddCommand(
		newFamilyActiveCmd(flags, "activate", true),
		newFamilyActiveCmd(flags, "deactivate", false),
	)

	return cmd
}

func runFamily(cmd *cobra.Command, flags *globalFlags, rawID string, rf readFlags) error {
	ctx := cmd.Context()
	id, err := parseID("family_id", rawID)
	if err != nil {
		return err
	}

	return withDeps(ctx, flags, func(d *Deps) error {
		family, err := d.Families.HandleGet(ctx, id, strconv.FormatBool(rf.includeInactive))
		if err != nil {
			return fmt.Errorf("getting family: %w", err)
		}

		out := cmd.OutOrStdout()
		if rf.json {
			return writeJSON(out, family)
		}
		displayFamily(out, family)
		return nil
	})
}

func newFamilyActiveCmd(flags *globalFlags, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <family-id>",
		Short: fmt.Sprintf("Mark a family %sd", use),
		Long:  "Families are never deleted; deactivated families are hidden from lists and trees unless inactive families are requested.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID("family_id", args[0])
			if err != nil {
				return err
			}
			return withDeps(ctx, flags, func(d *Deps) error {
				if err := d.Records.HandleSetFamilyActive(ctx, id, active); err != nil {
					return fmt.Errorf("updating family: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Family %d %sd\n", id, use)
				return nil
			})
		},
	}
}

func displayFamilySummary(w io.Writer, f *services.FamilyProjection) {
	name := f.FullLastName
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "ID: %d  %s  (%d members)", f.ID, name, f.MemberCount)
	if !f.IsActive {
		fmt.Fprint(w, "  [inactive]")
	}
	fmt.Fprintln(w)
}

func displayFamily(w io.Writer, f *services.FamilyProjection) {
	displayFamilySummary(w, f)
	if f.Description != "" {
		fmt.Fprintf(w, "  %s\n", f.Description)
	}
	for _, m := range f.Members {
		primary := ""
		if m.IsPrimary {
			primary = " *"
		}
		age := ""
		if m.Person.AgeYears != nil {
			age = fmt.Sprintf(", %d", *m.Person.AgeYears)
		}
		fmt.Fprintf(w, "  - %-12s %s (#%d%s)%s\n", m.Role.Name, m.Person.FullName, m.Person.ID, age, primary)
		for _, rel := range m.Person.Relationships {
			state := "ended"
			if rel.IsCurrent {
				state = "current"
			}
			fmt.Fprintf(w, "      %s with %s, %s%s\n", rel.RelationshipType.Label, rel.Partner.FullName, state,
				yearsSuffix(rel.RelationshipYears))
		}
	}
	fmt.Fprintln(w)
}
