package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"careTracker/internal/app"
	"careTracker/internal/config"
	"careTracker/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CARETRACKER_CONFIG"), "путь к config.yml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg)
	if _, err := application.Init(ctx); err != nil {
		application.Shutdown()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer application.Shutdown()

	if err := application.Run(ctx); err != nil {
		logger.Error("App: Сервер завершился с ошибкой", err)
		application.Shutdown()
		os.Exit(1)
	}
}
