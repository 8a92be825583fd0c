// Command dispatcher-api serves the ingestion and lookup endpoints. It
// runs schema migrations on startup so a fresh database is usable without
// a separate migration step.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-webhook-dispatcher/cmd/internal/bootstrap"
	"github.com/goliatone/go-webhook-dispatcher/command"
	"github.com/goliatone/go-webhook-dispatcher/core"
	"github.com/goliatone/go-webhook-dispatcher/httpapi"
	"github.com/goliatone/go-webhook-dispatcher/query"
)

func main() {
	logger := bootstrap.Logger("dispatcher-api")
	if err := run(logger); err != nil {
		logger.Error("api exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger core.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig(ctx)
	if err != nil {
		return err
	}

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	service, err := core.NewService(store, cfg, core.WithServiceLogger(logger))
	if err != nil {
		return err
	}

	handler := httpapi.NewHandler(
		command.NewEnqueueEventCommand(service),
		query.NewGetEventQuery(service),
		query.NewListAttemptsQuery(service),
	)
	server := httpapi.NewServer(cfg, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
