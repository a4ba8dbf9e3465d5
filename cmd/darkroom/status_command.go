package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"darkroom/internal/core"
	"darkroom/internal/media"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show version counts per tier and processing state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				counts, err := svc.Status(runCtx)
				if err != nil {
					return err
				}

				states := []media.State{
					media.StateUnprocessed,
					media.StateProcessed,
					media.StatePromoted,
					media.StateRejected,
				}
				headers := []string{"Tier"}
				for _, state := range states {
					headers = append(headers, string(state))
				}
				headers = append(headers, "Total")

				total := 0
				rows := make([][]string, 0, 2)
				for _, tier := range []media.Tier{media.TierSilver, media.TierGold} {
					row := []string{string(tier)}
					tierTotal := 0
					for _, state := range states {
						n := counts[tier][state]
						tierTotal += n
						row = append(row, strconv.Itoa(n))
					}
					row = append(row, strconv.Itoa(tierTotal))
					total += tierTotal
					rows = append(rows, row)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(headers, rows, 1, 2, 3, 4, 5))
				summary := fmt.Sprintf("%d version(s) in the library", total)
				if stdoutIsTerminal() {
					summary = ansiBold + summary + ansiReset
				}
				fmt.Fprintln(out, summary)
				return nil
			})
		},
	}
}
