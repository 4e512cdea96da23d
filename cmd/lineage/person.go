package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage/internal/application/handlers"
)

func newPersonCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "person <person-id>",
		Short: "Show a person with memberships, relationships and marriages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPerson(cmd, flags, args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	cmd.AddCommand(newPersonDeleteCmd(flags))

	return cmd
}

func runPerson(cmd *cobra.Command, flags *globalFlags, rawID string, asJSON bool) error {
	ctx := cmd.Context()
	id, err := parseID("person_id", rawID)
	if err != nil {
		return err
	}

	return withDeps(ctx, flags, func(d *Deps) error {
		view, err := d.People.HandleGet(ctx, id)
		if err != nil {
			return fmt.Errorf("getting person: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, view)
		}
		displayPerson(out, view)
		return nil
	})
}

func newPersonDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <person-id>",
		Short: "Delete a person",
		Long:  "Deletes a person who is not a family member, relationship party or spouse.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID("person_id", args[0])
			if err != nil {
				return err
			}
			return withDeps(ctx, flags, func(d *Deps) error {
				if err := d.Records.HandleDeletePerson(ctx, id); err != nil {
					return fmt.Errorf("deleting person: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted person: %d\n", id)
				return nil
			})
		},
	}
}

func displayPerson(w io.Writer, v *handlers.PersonView) {
	fmt.Fprintf(w, "ID: %d  %s\n", v.ID, v.FullName)
	if v.DateOfBirth != nil {
		fmt.Fprintf(w, "  Born: %s%s\n", *v.DateOfBirth, yearsSuffix(v.AgeYears))
	}
	if v.IsDeceased {
		fmt.Fprintf(w, "  Died: %s\n", deref(v.DateOfDeath))
	}
	for category, ref := range v.References {
		fmt.Fprintf(w, "  %s: %s\n", category, ref.Label)
	}
	if v.CurrentSpouse != nil {
		fmt.Fprintf(w, "  Spouse: %s (#%d)\n", v.CurrentSpouse.FullName, v.CurrentSpouse.ID)
	}

	if len(v.Memberships) > 0 {
		fmt.Fprintln(w, "\nFamilies:")
		for _, m := range v.Memberships {
			fmt.Fprintf(w, "  #%d %s as %s\n", m.FamilyID, deref(m.FamilyName), m.Role.Name)
		}
	}
	if len(v.Relationships) > 0 {
		fmt.Fprintln(w, "\nRelationships:")
		for _, r := range v.Relationships {
			fmt.Fprintf(w, "  #%d %s with %s since %s%s\n", r.ID, r.RelationshipType.Label, r.Partner.FullName,
				deref(r.StartedOn), endedSuffix(r.EndedOn))
		}
	}
	if len(v.Marriages) > 0 {
		fmt.Fprintln(w, "\nMarriages:")
		for _, m := range v.Marriages {
			fmt.Fprintf(w, "  #%d %s on %s%s%s\n", m.ID, m.Spouse.FullName, m.MarriedOn,
				endedSuffix(m.EndedOn), yearsSuffix(m.Years))
		}
	}
}

func endedSuffix(endedOn *string) string {
	if endedOn == nil {
		return ""
	}
	return ", ended " + *endedOn
}
