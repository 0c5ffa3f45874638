// Command retention runs one retention cleanup against the configured store
// and prints the result. It is meant for cron hosts and manual operator runs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/vedran77/hive/internal/config"
	"github.com/vedran77/hive/internal/database"
	"github.com/vedran77/hive/internal/jobs"
	"github.com/vedran77/hive/internal/logging"
	"github.com/vedran77/hive/internal/repository/docstore"
	"github.com/vedran77/hive/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("opening store")
	}
	defer backend.Close()

	repos := docstore.New(backend.Store)
	retention := service.NewRetentionService(repos.Channels, repos.Messages, repos.Retention, service.RetentionOptions{
		CommunityID: cfg.OpenCommunityID,
		Horizon:     cfg.Retention.Horizon.Duration(),
		Channels:    cfg.Retention.Channels,
		BatchSize:   cfg.Retention.BatchSize,
	}, log)

	runner := jobs.NewRunner(log)
	if err := runner.Register(service.RetentionJobName, retention.Job()); err != nil {
		log.WithError(err).Fatal("registering retention job")
	}

	res, err := runner.RunOnDemand(ctx, service.RetentionJobName)
	if err != nil {
		log.WithError(err).Fatal("retention run failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.WithError(err).Fatal("writing result")
	}
}
