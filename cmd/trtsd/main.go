// cmd/trtsd/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"trts/internal/app"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(3)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.RunContext(ctx, os.Getenv, logger)
	stop()

	_ = logger.Sync()
	os.Exit(code)
}
