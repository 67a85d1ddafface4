package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vnykmshr/tabflow/internal/cli/commands"
	"github.com/vnykmshr/tabflow/internal/cli/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		ui.New(os.Stderr).Error("%v", err)
		stop()
		os.Exit(1)
	}
}
