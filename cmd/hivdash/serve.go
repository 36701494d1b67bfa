package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/hivdash/internal/config"
	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/session"
	"github.com/JonMunkholm/hivdash/internal/views"
	"github.com/JonMunkholm/hivdash/internal/web"
)

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the data sources and serve the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if addr == "" {
				addr = c.Server.Addr()
			}
			return runServe(cmd.Context(), c, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: SERVER_HOST:SERVER_PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"data_driver", cfg.Data.Driver,
		"session_ttl", cfg.Session.TTL,
		"redis", cfg.Redis.URL != "",
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	data, err := loadData(ctx, cfg)
	if err != nil {
		return err
	}
	defer data.Close()

	health := map[string]web.HealthCheck{}
	if data.pool != nil {
		health["postgres"] = data.pool.Ping
	}

	var store session.Store
	rc, err := session.NewRedisClient(ctx, session.RedisConfig{
		URL:          cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		store = session.NewRedisStore(rc.Client)
		health["redis"] = rc.Health
	}

	engine := views.NewEngine(data.dataset)
	sessions := session.NewManager(engine, data.catalog, session.Config{
		TTL:           cfg.Session.TTL,
		MaxSessions:   cfg.Session.MaxSessions,
		SweepInterval: cfg.Session.SweepInterval,
		Views: views.SessionOptions{
			Defaults: views.Defaults{
				Country:          cfg.Defaults.Country,
				HighlightCountry: cfg.Defaults.HighlightCountry,
				ScatterYear:      cfg.Defaults.ScatterYear,
				Cohort:           core.Cohort(cfg.Defaults.Cohort),
			},
			CacheSize: cfg.Session.CacheSize,
			Metrics:   views.NewMetrics(),
		},
	}, store)

	server := web.NewServer(web.Deps{
		Config:   cfg,
		Engine:   engine,
		Catalog:  data.catalog,
		Registry: data.registry,
		Sessions: sessions,
		Health:   health,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessions.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := server.Start(addr); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
			return err
		}
		return nil
	})

	err = g.Wait()
	slog.Info("server stopped", "sessions", sessions.Len())
	return err
}
