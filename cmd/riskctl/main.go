// Package main is the riskctl command line.
package main

import (
	"os"

	"github.com/aristath/fundrisk/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
