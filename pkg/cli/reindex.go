package cli

import (
	"context"
	"fmt"
	"os"

	"reclaim/internal/core"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed all items and rebuild the vector index",
	//nolint:revive
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := core.NewService("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		defer func() { _ = svc.Close() }()

		count, err := svc.CountItems()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if count == 0 {
			fmt.Println("Nothing to reindex.")

			return
		}

		var bar *progressbar.ProgressBar

		progressCallback := func(current, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionShowCount(),
					progressbar.OptionSetWidth(40),
					progressbar.OptionSetDescription("Reindexing"),
					progressbar.OptionOnCompletion(func() {
						fmt.Println()
					}),
				)
			}

			_ = bar.Set(current)
		}

		summary, err := svc.Reindex(context.Background(), progressCallback)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Re-embedded %d/%d items with %s (%d dims)\n",
			summary.Embedded, summary.Total, summary.Model, summary.Dim)

		if summary.Skipped > 0 {
			fmt.Printf("Skipped %d item(s) that failed to embed; run reindex again to retry.\n", summary.Skipped)
		}
	},
}
