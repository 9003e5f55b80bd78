package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-country-currency/internal/artifacts"
	"github.com/tbourn/go-country-currency/internal/config"
	"github.com/tbourn/go-country-currency/internal/observability"
	"github.com/tbourn/go-country-currency/internal/repo"
	"github.com/tbourn/go-country-currency/internal/sysutil"
	"github.com/tbourn/go-country-currency/internal/upstream"
)

const shutdownTimeout = 10 * time.Second

// app bundles the dependencies every command needs.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	db    *gorm.DB
	store artifacts.Store
	gw    *upstream.Client

	stopTracing observability.Shutdown
}

// bootstrap loads configuration and opens every backing service. The
// returned app must be closed.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &app{cfg: cfg}
	a.log = sysutil.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	log.Logger = a.log

	a.stopTracing, err = observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version))
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}

	a.db, err = repo.Open(cfg.Database)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}

	a.store, err = artifacts.New(ctx, cfg.Artifacts)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("artifacts: %w", err)
	}

	a.gw = upstream.New(cfg.Upstream, nil)

	a.log.Debug().
		Str("db_driver", cfg.Database.Driver).
		Str("artifacts", cfg.Artifacts.Backend).
		Msg("bootstrap complete")
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.stopTracing(ctx); err != nil {
			a.log.Warn().Err(err).Msg("otel shutdown")
		}
	}
}
