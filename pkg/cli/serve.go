package cli

import (
	"fmt"
	"os"

	"reclaim/internal/core"
	"reclaim/internal/httpapi"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Reclaim HTTP API and chat relay",
	//nolint:revive
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := core.NewService("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		defer func() { _ = svc.Close() }()

		addr := svc.Config().Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		fmt.Printf("Listening on %s\n", addr)

		if err := httpapi.NewServer(svc).Run(addr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides config)")
}
