// cmd/signupd/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/signupd/cmd"
	"github.com/xkilldash9x/signupd/internal/observability"
)

func main() {
	// Flush buffered logs before a panic takes the process down.
	defer func() {
		if r := recover(); r != nil {
			observability.Sync()
			panic(r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
