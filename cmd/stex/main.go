package main

import (
	"os"

	"github.com/wonny/stex/backend/cmd/stex/commands"
)

// main is the entry point for the stex CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stex [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
