package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/buildhubhq/buildhub/internal/auth"
	"github.com/buildhubhq/buildhub/internal/authz"
	"github.com/buildhubhq/buildhub/internal/config"
	httpx "github.com/buildhubhq/buildhub/internal/http"
	"github.com/buildhubhq/buildhub/internal/http/middlewares"
	"github.com/buildhubhq/buildhub/internal/observability"
	"github.com/buildhubhq/buildhub/internal/session"
	"github.com/buildhubhq/buildhub/internal/upstream"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	// tracing is opt-in via OTLP_ENDPOINT
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "buildhub-bff", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()

				if err := shutdown(ctx); err != nil {
					log.Error("tracer shutdown failed", "err", err)
				}
			}()
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewProm(registry)

	// session backend: redis when configured, in-process otherwise
	var (
		store session.Store
		ping  func() error
	)

	if cfg.RedisAddr != "" {
		rs := session.NewRedisStore(session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.SessionTTL, log)

		defer func() {
			if err := rs.Close(); err != nil {
				log.Error("redis close failed", "err", err)
			}
		}()

		store = rs
		ping = func() error {
			ctx, cancel := config.WithTimeout(1 * time.Second)
			defer cancel()

			return rs.Ping(ctx)
		}

		log.Info("session store: redis", "addr", cfg.RedisAddr)
	} else {
		store = session.NewMemoryStore(cfg.SessionTTL, log)
		log.Info("session store: in-memory")
	}

	api := upstream.NewClient(cfg.AuthAPIBaseURL, cfg.BountiesBaseURL, metrics.ObserveUpstream, log)

	gate := authz.NewGate(store, api, cfg.AdminPassword, log)

	if cfg.AdminPassword == "" {
		log.Warn("no admin password configured; admin access is role-only")
	}

	tokens := auth.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	sessions := middlewares.NewSessionMiddleware(tokens, cfg.SessionTTL, cfg.Env)

	router := httpx.NewRouter(httpx.Deps{
		Cfg:      cfg,
		Log:      log,
		Store:    store,
		Upstream: api,
		Gate:     gate,
		Sessions: sessions,
		Metrics:  metrics,
		Registry: registry,
		Ping:     ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
