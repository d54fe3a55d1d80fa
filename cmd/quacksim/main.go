// Command quacksim simulates NQR pulse sequences.
package main

import (
	"os"

	"github.com/nqrduck/quacksim/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		os.Exit(cli.HandleError(os.Stderr, err))
	}
}
