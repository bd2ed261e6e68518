package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"graphjson/internal/app"
	"graphjson/internal/config"
	"graphjson/internal/source"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		if errors.Is(err, source.ErrSourceUnavailable) {
			log.Printf("input unavailable, nothing written: %v", err)
		} else {
			log.Printf("run failed: %v", err)
		}
		_ = a.Close()
		os.Exit(1)
	}
}
