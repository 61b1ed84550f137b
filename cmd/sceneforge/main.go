// Package main provides the sceneforge CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/sceneforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
