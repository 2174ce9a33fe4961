// Package main is the entry point for the daqctl CLI.
// The CLI is the shift-crew terminal tool for interacting with the panel API.
package main

import (
	"os"

	"daqpanel/cmd/daqctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
