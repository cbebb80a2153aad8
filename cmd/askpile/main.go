// Package main provides the entry point for the askpile CLI.
package main

import (
	"os"

	"github.com/askpile/askpile/cmd/askpile/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
