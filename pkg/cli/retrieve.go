package cli

import (
	"fmt"
	"os"

	"reclaim/internal/core"

	"github.com/spf13/cobra"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [item-id]",
	Short: "Mark an item as retrieved by its owner",
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

		if err := svc.MarkRetrieved(itemID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Marked %s as retrieved. It will no longer appear in matches or the feed.\n", itemID)
	},
}
