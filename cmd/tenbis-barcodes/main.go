package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/tenbis-barcodes/internal/logger"
)

func main() {
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("tenbis-barcodes failed")
	}
}
