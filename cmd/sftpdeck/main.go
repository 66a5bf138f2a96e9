package main

import (
	"os"

	"github.com/sftpdeck/sftpdeck/internal/cli"
	"github.com/sftpdeck/sftpdeck/internal/update"
)

func main() {
	// Post-update restart: remove the ".old" and ".backup" leftovers
	// before anything else touches the executable's directory.
	update.CleanupLeftovers()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
