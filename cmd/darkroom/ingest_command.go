package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"darkroom/internal/core"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest photo or video files into the silver tier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]core.IngestFile, 0, len(args))
			for _, arg := range args {
				data, err := os.ReadFile(arg)
				if err != nil {
					return fmt.Errorf("read %s: %w", arg, err)
				}
				files = append(files, core.IngestFile{
					Data:     data,
					Filename: filepath.Base(arg),
				})
			}

			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				batch, err := svc.IngestBatch(runCtx, files)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(files))
				for i, file := range files {
					if failure, ok := batch.Failures[i]; ok {
						rows = append(rows, []string{file.Filename, "failed", failure.Error()})
						continue
					}
					result := batch.Results[i]
					if result == nil {
						continue
					}
					detail := result.AssetID
					switch result.Status {
					case core.IngestSkipped:
						detail = "duplicate of version " + result.DuplicateOf
					case core.IngestConflict:
						detail = fmt.Sprintf("%d visually identical version(s); resolve manually", len(result.Conflicts))
					}
					rows = append(rows, []string{file.Filename, string(result.Status), detail})
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Outcome", "Detail"}, rows))
				if len(batch.Failures) > 0 {
					return fmt.Errorf("%d file(s) failed to ingest", len(batch.Failures))
				}
				return nil
			})
		},
	}
}
