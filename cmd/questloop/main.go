package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/questloop/internal/cli"
	"github.com/aristath/questloop/internal/config"
)

func main() {
	// Cancelling the context kills the game subprocesses and stops the run
	// between ticks.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		config.Exitf("Error: %v", err)
	}
}
