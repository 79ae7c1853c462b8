// Command dispatch runs a single scheduled-message dispatcher pass and exits.
// It is meant for deployments that drive the dispatcher from an external cron
// with the in-process scheduler disabled.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yigit/formatrack/internal/app/repositories"
	"github.com/yigit/formatrack/internal/bootstrap"
	"github.com/yigit/formatrack/internal/db"
	"github.com/yigit/formatrack/internal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		logger.Error().Err(err).Msg("Dispatch run failed")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return err
	}

	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	// With redis enabled the events reach clients connected to the API
	// process; the local broker has no subscribers here.
	broker, err := bootstrap.NewBroker(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer broker.Close()

	notifier, err := bootstrap.NewNotifier(cfg, lgr)
	if err != nil {
		return err
	}

	dispatcher := bootstrap.NewDispatcher(cfg, repositories.NewRepositories(database.Pool), broker, notifier, lgr)
	res, err := dispatcher.RunOnce(ctx)
	if err != nil {
		return err
	}

	lgr.Info().
		Int("processed", res.Processed).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("recipients", res.Recipients).
		Int("emailsFailed", res.EmailsFailed).
		Int64("requeued", res.Requeued).
		Int("claimsLost", res.ClaimsLost).
		Msg("Dispatch pass complete")
	return nil
}
