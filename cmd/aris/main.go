// Package main provides the entry point for the aris server CLI.
package main

import (
	"os"

	"github.com/aris-rag/aris/cmd/aris/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
