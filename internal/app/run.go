package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"airquality-server/internal/config"
	db "airquality-server/internal/db"
	httpapi "airquality-server/internal/httpapi"
	"airquality-server/internal/migrate"
	airquality "airquality-server/internal/modules/airquality"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/types"
	airqualityviews "airquality-server/internal/modules/airquality/views"
)

// Run loads the dataset, serves the dashboard until ctx is cancelled and
// then shuts the HTTP server down gracefully.
func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"datasetSource", cfg.DatasetSource,
		"datasetPath", cfg.DatasetPath,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbLogSQL", cfg.LogSQL,
	)

	ds, err := LoadDataset(ctx, cfg)
	if err != nil {
		return err
	}

	if err := airqualityviews.LoadTemplates(); err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	mux := httpapi.NewMux(ds)
	airquality.RegisterFeature(mux, ds)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// LoadDataset reads every reading from the configured source. An empty
// dataset is an error since the dashboard has nothing to select.
func LoadDataset(ctx context.Context, cfg config.Config) (*types.Dataset, error) {
	var (
		ds  *types.Dataset
		err error
	)
	switch cfg.DatasetSource {
	case config.DatasetSourceCSV:
		ds, err = dataset.LoadCSV(cfg.DatasetPath)
	case config.DatasetSourceSQLite:
		ds, err = loadFromStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown dataset source %q", cfg.DatasetSource)
	}
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("dataset from %s is empty", cfg.DatasetSource)
	}
	return ds, nil
}

func loadFromStore(ctx context.Context, cfg config.Config) (*types.Dataset, error) {
	dbConn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if _, err := migrate.Run(ctx, dbConn); err != nil {
		return nil, err
	}

	start := time.Now()
	ds, err := repository.NewRepository(dbConn).LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset from store: %w", err)
	}
	slog.Info("dataset loaded",
		"path", cfg.Path,
		"readings", ds.Len(),
		"years", ds.Years(),
		"stations", len(ds.Stations()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ds, nil
}
