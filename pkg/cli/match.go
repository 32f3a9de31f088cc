package cli

import (
	"context"
	"fmt"
	"os"

	"reclaim/internal/core"

	"github.com/spf13/cobra"
)

var matchLimit int

var matchCmd = &cobra.Command{
	Use:   "match [item-id]",
	Short: "Find found items matching a lost item",
	Args:  cobra.ExactArgs(1),
	//nolint:revive
	Run: func(cmd *cobra.Command, args []string) {
		itemID := args[0]

		svc, err := core.NewService("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		defer func() { _ = svc.Close() }()

		result, err := svc.FindMatches(context.Background(), itemID, matchLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(result.Matches) == 0 {
			fmt.Println("No matches found.")

			if result.SelfMatchCount > 0 {
				fmt.Printf("(%d candidate(s) were your own reports)\n", result.SelfMatchCount)
			}

			return
		}

		fmt.Printf("\n Matches (%d found) \n\n", len(result.Matches))

		for i, m := range result.Matches {
			fmt.Printf(" [%d] %s (score: %.2f)\n", i+1, m.Name, m.Score)
			fmt.Printf("     %s | %s | %s\n", m.MainCategory, displayDate(m.CreatedAt), m.Location)
			fmt.Printf("     %s\n", m.Description)
			fmt.Printf("     id: %s\n", m.ID)
			fmt.Println()
		}

		if result.SelfMatchCount > 0 {
			fmt.Printf("Excluded %d of your own report(s) from the results.\n", result.SelfMatchCount)
		}
	},
}

func init() {
	matchCmd.Flags().IntVarP(&matchLimit, "limit", "n", 0, "Maximum number of matches (default from config)")
}
