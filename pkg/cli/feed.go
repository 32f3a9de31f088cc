package cli

import (
	"fmt"
	"os"

	"reclaim/internal/core"

	"github.com/spf13/cobra"
)

var feedLimit int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "List recently found items not yet returned",
	//nolint:revive
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := core.NewService("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		defer func() { _ = svc.Close() }()

		items, err := svc.Feed(feedLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(items) == 0 {
			fmt.Println("No found items yet.")

			return
		}

		fmt.Printf("\n Found items (%d) \n\n", len(items))

		for i, it := range items {
			fmt.Printf(" [%d] %s\n", i+1, it.Name)
			fmt.Printf("     %s | %s | %s\n", it.MainCategory, displayDate(it.CreatedAt), it.Location)

			if it.CurrentLocation != nil {
				fmt.Printf("     Kept at: %s\n", *it.CurrentLocation)
			}

			fmt.Printf("     id: %s\n", it.ID)
			fmt.Println()
		}
	},
}

func init() {
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 0, "Maximum number of items (default from config)")
}
