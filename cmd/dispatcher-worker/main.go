// Command dispatcher-worker runs the delivery poll loop. Any number of
// worker processes may point at the same database; the claim protocol
// keeps them off each other's rows.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-webhook-dispatcher/cmd/internal/bootstrap"
	"github.com/goliatone/go-webhook-dispatcher/core"
	"github.com/goliatone/go-webhook-dispatcher/security"
)

func main() {
	logger := bootstrap.Logger("dispatcher-worker")
	if err := run(logger); err != nil {
		logger.Error("worker exited", "error", err.Error())
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

	secretSource, err := security.NewStaticSecretSource([]byte(cfg.WebhookSecret))
	if err != nil {
		return err
	}
	secret, err := secretSource.Secret(ctx)
	if err != nil {
		return err
	}
	signer, err := core.NewBodySigner(secret)
	if err != nil {
		return err
	}

	policy := core.NewExponentialBackoff(cfg.Backoff.Base, cfg.Backoff.Max, nil)
	sender := core.NewHTTPSender(cfg.HTTPTimeout, cfg.ResponseBodyLimit)

	dispatcher, err := core.NewDispatcher(
		store,
		sender,
		signer,
		policy,
		cfg,
		core.WithDispatcherLogger(logger),
	)
	if err != nil {
		return err
	}

	return dispatcher.Run(ctx)
}
