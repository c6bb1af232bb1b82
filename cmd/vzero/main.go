// Command vzero talks to the chat API from the terminal.
//
// Replies are streamed, reconstructed and rendered while they arrive.
// Completed messages are recorded in the configured store.
//
// Configuration is read from --config, VZERO_CONFIG, ./vzero.yaml or
// $HOME/.config/vzero/config.yaml, with VZERO_* environment overrides.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("vzero failed", "error", err)
		stop()
		os.Exit(1)
	}
}
