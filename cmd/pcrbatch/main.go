// Package main provides the pcrbatch command.
package main

import (
	"os"

	"github.com/leapstack-labs/pcrbatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
