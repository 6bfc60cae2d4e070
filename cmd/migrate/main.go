package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"padel-scoring/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.Standalone(cli.NewMigrateCommand)
	cmd.Use = "migrate"
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
