package main

import (
	"github.com/joho/godotenv"

	"reclaim/pkg/cli"
)

func main() {
	// Optional; API keys may come from a local .env during development.
	_ = godotenv.Load()

	cli.Execute()
}
