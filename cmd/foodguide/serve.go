package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodguide/internal/auth"
	"foodguide/internal/cache"
	"foodguide/internal/db"
	"foodguide/internal/generation"
	"foodguide/internal/geo"
	"foodguide/internal/guide"
	httpx "foodguide/internal/http"
	"foodguide/internal/metrics"
	"foodguide/internal/orchestrator"
	"foodguide/internal/session"
	"foodguide/internal/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.RequireGenerator(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint, "foodguide")
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	gen, err := generation.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := orchestrator.Options{
		Metrics:       m,
		Logger:        log,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			// the store still answers every lookup
			log.Warn("redis unavailable, search key cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			opts.Cache = cache.NewSearchKeys(client, cfg.SearchCacheTTL, log)
		}
	}

	orch := orchestrator.New(&guide.Repo{DB: gdb}, gen, opts)
	sessions := session.NewRegistry()

	sweeper := &session.Sweeper{
		Registry: sessions,
		MaxIdle:  cfg.SessionIdleTimeout,
		Interval: time.Minute,
		Log:      log,
		OnEvict:  m.SetActiveSessions,
	}
	go sweeper.Run(ctx)

	r := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Orch:     orch,
		Sessions: sessions,
		JWT:      auth.NewJWT(cfg.JWTSecret),
		Geo:      geo.NewGeocoder(cfg.GeocoderURL, log),
		Metrics:  m,
		Gatherer: reg,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
