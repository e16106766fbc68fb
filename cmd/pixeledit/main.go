package main

import (
	"fmt"
	"os"

	"github.com/dunamismax/pixeledit/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pixeledit: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := pipeline.Startup(); err != nil {
		return fmt.Errorf("start encoder runtime: %w", err)
	}
	defer pipeline.Shutdown()

	return rootCmd.Execute()
}
