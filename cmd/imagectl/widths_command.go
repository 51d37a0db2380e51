package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newWidthsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "widths",
		Short: "Show the configured target widths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, entry := range cfg.ResolutionPolicy().Entries() {
				width := "request"
				if entry.Resolved {
					width = strconv.Itoa(entry.Width)
				}
				kind := "other"
				if entry.IsFeature {
					kind = "feature"
				}
				rows = append(rows, []string{string(entry.Brand), string(entry.Category), kind, width})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Brand", "Category", "Image", "Width"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
