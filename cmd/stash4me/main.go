package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/ibeckermayer/stash4me/internal/cli"
)

func main() {
	// Credentials often live in a local .env during development; absence is
	// not an error.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
