// Package main provides the mixsense CLI.
package main

import (
	"os"

	"github.com/mixsense-labs/mixsense/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
