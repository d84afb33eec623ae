// Package main provides the entry point for fwt.
//
// fwt generates keys and issues, validates and inspects tokens, either
// locally with a key or against a running fwt-server.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/fwt-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
