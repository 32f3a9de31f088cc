package cli

import (
	"fmt"
	"os"

	"reclaim/internal/core"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [item-id]",
	Short: "Delete an item report and its media",
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

		removed, err := svc.Remove(itemID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if !removed {
			fmt.Printf("No item with id %s\n", itemID)

			return
		}

		fmt.Printf("Removed %s\n", itemID)
	},
}
