package main

import (
	"os"

	"github.com/parleygit/parley/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
