package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jo-hoe/imagecompressor/internal/backend/imageprocessing"
	"github.com/jo-hoe/imagecompressor/internal/core"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var brand, category string
	var featureWidth, nonFeatureWidth int

	cmd := &cobra.Command{
		Use:   "process <dir>",
		Short: "Normalize every file in a directory as one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readBatchDir(args[0])
			if err != nil {
				return err
			}
			req := imageprocessing.BatchRequest{
				Files:           files,
				Brand:           imageprocessing.Brand(brand),
				Category:        imageprocessing.Category(category),
				FeatureWidth:    featureWidth,
				NonFeatureWidth: nonFeatureWidth,
			}

			return ctx.withCore(cmd.Context(), cmd.ErrOrStderr(), func(coreService *core.CoreService) error {
				result, err := coreService.ProcessBatch(cmd.Context(), req)
				if err != nil {
					return err
				}
				printBatchResult(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&brand, "brand", "", "Brand selecting the width table (CDC or TJK)")
	cmd.Flags().StringVar(&category, "category", "", "Content category (Articles or Webstories)")
	cmd.Flags().IntVar(&featureWidth, "feature-width", 0, "Width for feature images the table does not resolve")
	cmd.Flags().IntVar(&nonFeatureWidth, "non-feature-width", 0, "Width for other images the table does not resolve")

	return cmd
}

// readBatchDir reads the regular files of dir in name order. Filtering is
// left to the batch so rejected names are reported the same way as uploads.
func readBatchDir(dir string) ([]imageprocessing.UploadedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var files []imageprocessing.UploadedFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		files = append(files, imageprocessing.UploadedFile{Name: entry.Name(), Data: data})
	}
	return files, nil
}

func printBatchResult(cmd *cobra.Command, result *imageprocessing.BatchResult) {
	results := append([]imageprocessing.Result(nil), result.Results...)
	sort.Slice(results, func(i, j int) bool { return results[i].FileName < results[j].FileName })

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.FileName,
			strconv.Itoa(r.Width),
			strconv.Itoa(r.Height),
			strconv.Itoa(r.Quality),
			strconv.Itoa(r.Size),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s\n", result.BatchID)
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Width", "Height", "Quality", "Bytes"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
}
