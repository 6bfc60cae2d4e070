package main

import (
	"fmt"
	"os"

	"padel-scoring/internal/cli"
)

func main() {
	cmd := cli.Standalone(cli.NewReplayCommand)
	cmd.Use = "replay <scenario.yaml>..."
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
