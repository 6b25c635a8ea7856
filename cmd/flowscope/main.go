// Package main provides the flowscope CLI.
package main

import (
	"os"

	"github.com/flowscope-dev/flowscope/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
