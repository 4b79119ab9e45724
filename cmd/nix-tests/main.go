// Package main provides the nix-tests command.
package main

import (
	"os"

	"github.com/leapstack-labs/nixtests/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
