package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"darkroom/internal/core"
)

func newBurstsCommand(ctx *commandContext) *cobra.Command {
	burstsCmd := &cobra.Command{
		Use:   "bursts",
		Short: "Detect and resolve burst sequences",
	}

	burstsCmd.AddCommand(newBurstsAnalyzeCommand(ctx))
	burstsCmd.AddCommand(newBurstsResolveCommand(ctx))

	return burstsCmd
}

func newBurstsAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze ASSET_ID...",
		Short: "Cluster assets into burst groups",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				groups, err := svc.AnalyzeBurstCandidates(runCtx, args)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(groups) == 0 {
					fmt.Fprintln(out, "No burst groups detected")
					return nil
				}

				for _, group := range groups {
					fmt.Fprintf(out, "Group %s (%d members)\n", group.ID, len(group.Members))
					rows := make([][]string, 0, len(group.Members))
					for _, member := range group.Members {
						marker := ""
						if member.AssetID == group.Representative.AssetID {
							marker = "representative"
						}
						rows = append(rows, []string{
							member.AssetID,
							member.Filename,
							string(member.Tier),
							member.CaptureTime.Format("2006-01-02 15:04:05"),
							strconv.FormatFloat(member.AIConfidence, 'f', 2, 64),
							marker,
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Asset", "File", "Tier", "Captured", "Confidence", ""},
						rows, 4))
				}
				return nil
			})
		},
	}
}

func newBurstsResolveCommand(ctx *commandContext) *cobra.Command {
	var keepFlag string

	cmd := &cobra.Command{
		Use:   "resolve --keep ASSET_ID[,ASSET_ID...] ASSET_ID...",
		Short: "Sweep non-selected burst members out of the silver tier",
		Long: "Re-analyzes the given assets, then resolves every detected group that\n" +
			"contains at least one kept asset. Unselected members are marked rejected.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kept := splitIDList(keepFlag)
			if len(kept) == 0 {
				return fmt.Errorf("--keep requires at least one asset id")
			}

			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				groups, err := svc.AnalyzeBurstCandidates(runCtx, args)
				if err != nil {
					return err
				}

				keptSet := make(map[string]bool, len(kept))
				for _, id := range kept {
					keptSet[id] = true
				}

				out := cmd.OutOrStdout()
				resolvedAny := false
				for _, group := range groups {
					touches := false
					for _, member := range group.Members {
						if keptSet[member.AssetID] {
							touches = true
							break
						}
					}
					if !touches {
						continue
					}

					result, err := svc.ResolveBurst(runCtx, group.ID, kept)
					if err != nil {
						return err
					}
					resolvedAny = true
					fmt.Fprintf(out, "Group %s: kept %d, swept %d\n",
						result.GroupID, len(result.Kept), len(result.Swept))
					for assetID, failure := range result.Failures {
						fmt.Fprintf(out, "  %s: %v\n", assetID, failure)
					}
				}
				if !resolvedAny {
					fmt.Fprintln(out, "No burst group contains the kept assets")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&keepFlag, "keep", "", "Comma-separated asset ids to keep")
	return cmd
}

func splitIDList(value string) []string {
	parts := strings.Split(value, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
