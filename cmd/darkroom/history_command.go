package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"darkroom/internal/core"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history ASSET_ID",
		Short: "Show an asset's processing ledger, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				entries, err := svc.History(runCtx, args[0])
				if err != nil {
					return err
				}
				versions, err := svc.Versions(runCtx, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(versions) > 0 {
					rows := make([][]string, 0, len(versions))
					for _, version := range versions {
						rows = append(rows, []string{
							version.ID,
							string(version.Tier),
							string(version.State),
							version.FilePath,
						})
					}
					fmt.Fprintln(out, renderTable([]string{"Version", "Tier", "State", "Path"}, rows))
				}
				if len(entries) == 0 {
					fmt.Fprintf(out, "No history for asset %s\n", args[0])
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.Timestamp.Format("2006-01-02 15:04:05"),
						string(entry.Action),
						entry.Detail,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Timestamp", "Action", "Detail"}, rows))
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				if err := svc.TestNotification(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	}
}
