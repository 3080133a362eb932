package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Launched from a file manager: reopen inside a terminal running the TUI.
	if len(os.Args) == 1 && isDoubleClick() {
		if err := spawnTerminal(); err == nil {
			return
		}
	}

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "%sError: %v\n", emoji("❌"), err)
		}
		os.Exit(1)
	}
}
