package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockroom/internal/platform/config"
	"stockroom/pkg/platform/sentinel"
)

// main keeps wiring in the command tree and business logic in internal
// packages. Configuration comes from the environment; flags override it.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(config.FromEnv()).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stockroom:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for usage and configuration mistakes and 1 for everything
// else, including an unreachable origin.
func exitCode(err error) int {
	if errors.Is(err, sentinel.ErrInvalidConfig) {
		return 2
	}
	return 1
}
