package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"darkroom/internal/core"
	"darkroom/internal/faces"
)

func newFacesCommand(ctx *commandContext) *cobra.Command {
	facesCmd := &cobra.Command{
		Use:   "faces",
		Short: "Review and assign detected faces",
	}

	facesCmd.AddCommand(newFacesSuggestCommand(ctx))
	facesCmd.AddCommand(newFacesAssignCommand(ctx))
	facesCmd.AddCommand(newFacesUnassignCommand(ctx))
	facesCmd.AddCommand(newFacesIgnoreCommand(ctx))
	facesCmd.AddCommand(newFacesUnignoreCommand(ctx))

	return facesCmd
}

func newFacesSuggestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Propose identities for unassigned faces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				suggestions, err := svc.SuggestFaceAssignments(runCtx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(suggestions) == 0 {
					fmt.Fprintln(out, "No suggestions; all confident faces are assigned")
					return nil
				}

				rows := make([][]string, 0, len(suggestions))
				for _, suggestion := range suggestions {
					for i, candidate := range suggestion.Candidates {
						faceID, versionID := suggestion.FaceID, suggestion.VersionID
						if i > 0 {
							faceID, versionID = "", ""
						}
						rows = append(rows, []string{
							faceID,
							versionID,
							candidate.PersonID,
							strconv.Itoa(candidate.Confidence) + "%",
							strconv.Itoa(candidate.Support),
						})
					}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Face", "Version", "Person", "Confidence", "Support"},
					rows, 3, 4))
				return nil
			})
		},
	}
}

func newFacesAssignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign FACE_ID PERSON_ID [FACE_ID PERSON_ID...]",
		Short: "Assign faces to persons",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected FACE_ID PERSON_ID pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments := make([]faces.Assignment, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				assignments = append(assignments, faces.Assignment{
					FaceID:   args[i],
					PersonID: args[i+1],
				})
			}

			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				result, err := svc.BatchAssignFaces(runCtx, assignments)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Assigned %d face(s)\n", len(result.Applied))
				for faceID, failure := range result.Failures {
					fmt.Fprintf(out, "  %s: %v\n", faceID, failure)
				}
				if len(result.Failures) > 0 {
					return fmt.Errorf("%d assignment(s) failed", len(result.Failures))
				}
				return nil
			})
		},
	}
}

func newFacesUnassignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign FACE_ID",
		Short: "Detach a face from its person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				if err := svc.AssignFace(runCtx, args[0], nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Face %s unassigned\n", args[0])
				return nil
			})
		},
	}
}

func newFacesIgnoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ignore FACE_ID",
		Short: "Exclude a face from matching and suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				if err := svc.IgnoreFace(runCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Face %s ignored\n", args[0])
				return nil
			})
		},
	}
}

func newFacesUnignoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unignore FACE_ID",
		Short: "Return an ignored face to the matching pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(runCtx context.Context, svc *core.Service) error {
				if err := svc.UnignoreFace(runCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Face %s restored\n", args[0])
				return nil
			})
		},
	}
}
