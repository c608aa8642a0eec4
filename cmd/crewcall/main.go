// Package main is the entry point for the crewcall CLI.
package main

import (
	"os"

	"github.com/crewcall/crewcall/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
