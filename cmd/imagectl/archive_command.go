package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/imagecompressor/internal/core"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "archive <batchId>",
		Short: "Build the download archive of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := args[0]
			return ctx.withCore(cmd.Context(), cmd.ErrOrStderr(), func(coreService *core.CoreService) error {
				build := coreService.BuildArchive
				if rebuild {
					build = coreService.RebuildArchive
				}
				name, err := build(cmd.Context(), batchID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Archive ready: %s\n", name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Discard a cached archive and build it again")

	return cmd
}
