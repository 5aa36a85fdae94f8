package main

import (
	"os"

	"github.com/tradia/signals/cmd/tradia/commands"
)

// Entry point for the tradia CLI: go run ./cmd/tradia [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
