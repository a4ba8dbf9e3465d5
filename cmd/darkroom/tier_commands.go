package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"darkroom/internal/core"
)

func newPromoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "promote ASSET_ID...",
		Short: "Promote assets from silver to gold",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				batch, err := svc.PromoteAll(runCtx, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, assetID := range args {
					if failure, ok := batch.Failures[assetID]; ok {
						fmt.Fprintf(out, "%s: %v\n", assetID, failure)
						continue
					}
					if gold, ok := batch.Promoted[assetID]; ok {
						fmt.Fprintf(out, "%s: promoted to %s\n", assetID, filepath.Base(gold.FilePath))
					}
				}
				if len(batch.Failures) > 0 {
					return fmt.Errorf("%d asset(s) failed to promote", len(batch.Failures))
				}
				return nil
			})
		},
	}
}

func newDemoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "demote ASSET_ID...",
		Short: "Demote assets from gold back to silver",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				out := cmd.OutOrStdout()
				var failed int
				for _, assetID := range args {
					if err := svc.Demote(runCtx, assetID); err != nil {
						fmt.Fprintf(out, "%s: %v\n", assetID, err)
						failed++
						continue
					}
					fmt.Fprintf(out, "%s: demoted\n", assetID)
				}
				if failed > 0 {
					return fmt.Errorf("%d asset(s) failed to demote", failed)
				}
				return nil
			})
		},
	}
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess VERSION_ID...",
		Short: "Re-run metadata enrichment against stored versions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				out := cmd.OutOrStdout()
				var failed int
				for _, versionID := range args {
					if err := svc.Reprocess(runCtx, versionID); err != nil {
						fmt.Fprintf(out, "%s: %v\n", versionID, err)
						failed++
						continue
					}
					fmt.Fprintf(out, "%s: reprocessed\n", versionID)
				}
				if failed > 0 {
					return fmt.Errorf("%d version(s) failed to reprocess", failed)
				}
				return nil
			})
		},
	}
}
