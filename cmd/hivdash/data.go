package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/hivdash/internal/config"
	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/core/sources"
	"github.com/JonMunkholm/hivdash/internal/source"
)

// loaded is the ingested dataset and everything derived from it at startup.
type loaded struct {
	registry *core.Registry
	dataset  *core.Dataset
	catalog  *core.Catalog
	pool     *pgxpool.Pool // nil for the csv driver
}

func (l *loaded) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

// loadData reads the manifest, fetches every source through the configured
// driver and builds the dataset. Any failure is fatal to startup.
func loadData(ctx context.Context, cfg *config.Config) (*loaded, error) {
	reg, err := registry(cfg.Data.Manifest)
	if err != nil {
		return nil, err
	}

	out := &loaded{registry: reg}
	var loader source.Loader
	switch cfg.Data.Driver {
	case config.DriverPostgres:
		out.pool, err = openPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		loader = source.NewPostgresLoader(out.pool)
	default:
		loader = source.NewDirLoader(cfg.Data.Dir)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Data.LoadTimeout)
	defer cancel()

	start := time.Now()
	raw, err := source.LoadAll(ctx, loader, reg)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("load sources: %w", err)
	}

	out.dataset, err = core.Build(reg, raw)
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("build dataset: %w", err)
	}
	out.catalog = core.NewCatalog(out.dataset)

	slog.Info("dataset loaded",
		"driver", loader.Name(),
		"sources", reg.Count(),
		"country_years", len(out.dataset.CountryYears()),
		"gender_prevalence", len(out.dataset.GenderPrevalence()),
		"countries", len(out.catalog.Countries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// registry loads the source manifest; an empty path means the embedded one.
func registry(path string) (*core.Registry, error) {
	reg, err := sources.Load(path)
	if err != nil {
		return nil, fmt.Errorf("manifest %q: %w", path, err)
	}
	return reg, nil
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
