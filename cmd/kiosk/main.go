package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kiosk/internal/app"
)

func main() {
	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize kiosk: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Kiosk stopped with error: %v", err)
	}
}
