package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"darkroom/internal/core"
)

func newPersonsCommand(ctx *commandContext) *cobra.Command {
	personsCmd := &cobra.Command{
		Use:   "persons",
		Short: "Manage known identities",
	}

	personsCmd.AddCommand(newPersonsListCommand(ctx))
	personsCmd.AddCommand(newPersonsAddCommand(ctx))
	personsCmd.AddCommand(newPersonsRemoveCommand(ctx))

	return personsCmd
}

func newPersonsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered persons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				persons, err := svc.ListPersons(runCtx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(persons) == 0 {
					fmt.Fprintln(out, "No persons registered")
					return nil
				}

				rows := make([][]string, 0, len(persons))
				for _, person := range persons {
					birthdate := ""
					if person.Birthdate != nil {
						birthdate = person.Birthdate.Format("2006-01-02")
					}
					rows = append(rows, []string{person.ID, person.Name, birthdate})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Birthdate"}, rows))
				return nil
			})
		},
	}
}

func newPersonsAddCommand(ctx *commandContext) *cobra.Command {
	var birthdateFlag string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a new person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var birthdate *time.Time
			if birthdateFlag != "" {
				parsed, err := time.Parse("2006-01-02", birthdateFlag)
				if err != nil {
					return fmt.Errorf("parse birthdate (want YYYY-MM-DD): %w", err)
				}
				birthdate = &parsed
			}

			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				person, err := svc.CreatePerson(runCtx, args[0], birthdate)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created person %s (%s)\n", person.Name, person.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&birthdateFlag, "birthdate", "", "Birthdate as YYYY-MM-DD, used for age context in descriptions")
	return cmd
}

func newPersonsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PERSON_ID",
		Short: "Remove a person; their faces revert to unassigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				if err := svc.DeletePerson(runCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed person %s\n", args[0])
				return nil
			})
		},
	}
}
