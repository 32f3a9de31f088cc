package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Reclaim - campus lost-and-found semantic matcher",
	Long:  `Reclaim matches lost items against found items using multilingual text embeddings and optional image embeddings. Report items, browse the found feed, and let the matcher rank candidates by semantic similarity.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
