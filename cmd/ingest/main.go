package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airquality-server/internal/config"
	"airquality-server/internal/db"
	"airquality-server/internal/logging"
	"airquality-server/internal/migrate"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/service"
	"airquality-server/internal/mqtt"
)

const appName = "airquality-ingest"

var version = "dev"

const usage = `usage: %s <command>
  migrate          apply pending schema/seed migrations
  import <csv>     load a dataset CSV into the store (defaults to DATASET_PATH)
  subscribe        store live telemetry from MQTT_TOPIC until interrupted
  replay <csv> [interval]
                   publish a dataset CSV to MQTT_TOPIC as live telemetry
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("ingest failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string) error {
	if args[0] == "replay" {
		return replay(ctx, cfg, args[1:])
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	n, err := migrate.Run(ctx, conn)
	if err != nil {
		return err
	}
	repo := repository.NewRepository(conn)

	switch args[0] {
	case "migrate":
		slog.Info("migrations applied", "count", n)
		return nil

	case "import":
		path := cfg.DatasetPath
		if len(args) > 1 {
			path = args[1]
		}
		ds, err := dataset.LoadCSV(path)
		if err != nil {
			return err
		}
		written, err := repo.InsertReadings(ctx, ds.Readings())
		if err != nil {
			return err
		}
		slog.Info("dataset imported", "path", path, "readings", ds.Len(), "written", written)
		return nil

	case "subscribe":
		subscriber, err := mqtt.NewSubscriber(cfg, slog.Default().With("component", "mqtt"))
		if err != nil {
			return err
		}
		// Set the handler before connecting so queued messages are not dropped.
		service.NewService(repo, slog.Default()).Register(subscriber)
		return subscriber.Run(ctx)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func replay(ctx context.Context, cfg config.Config, args []string) error {
	path := cfg.DatasetPath
	if len(args) > 0 {
		path = args[0]
	}
	var interval time.Duration
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid interval %q: %w", args[1], err)
		}
		interval = d
	}

	ds, err := dataset.LoadCSV(path)
	if err != nil {
		return err
	}

	publisher, err := mqtt.NewPublisher(cfg, slog.Default().With("component", "mqtt"))
	if err != nil {
		return err
	}
	if err := publisher.Connect(ctx); err != nil {
		return err
	}
	defer publisher.Disconnect()

	sent, err := publisher.Replay(ctx, ds.Readings(), interval)
	slog.Info("dataset replayed", "path", path, "readings", ds.Len(), "sent", sent)
	return err
}
