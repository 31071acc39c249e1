// Package main provides the entry point for the placesearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/placesearch/cmd/placesearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
