// Package main provides the tabmeta CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/tabmeta/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
