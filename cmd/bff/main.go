// Package main is the entry point for the ERP BFF server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/command"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/config"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/demo"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/invoker"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/observability"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/openapi"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/optimistic"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/page"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/resource"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/session"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/statusreg"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/transport"
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/validation"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Step 1: Parse CLI flags.
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Step 2: Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	// Step 3: Initialize telemetry (logger, tracer, metrics).
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "erp-bff", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Step 4: Connect to redis when any store uses it.
	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = connectRedis(ctx, cfg)
		if err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return 1
		}
		defer rdb.Close()
	}

	// Step 5: Load status display overrides, validate, build registry.
	overrides, err := statusreg.NewLoader().LoadAll(cfg.Status.Directories)
	if err != nil {
		logger.Error("status override loading failed", zap.Error(err))
		return 1
	}
	if verrs := statusreg.Validate(overrides); len(verrs) > 0 {
		for _, ve := range verrs {
			logger.Error("status override validation error", zap.String("error", ve.Error()))
		}
		logger.Error("status override validation failed", zap.Int("errors", len(verrs)))
		return 1
	}
	statusRegistry := statusreg.NewRegistry(overrides)
	metrics.SetStatusDomainsLoaded(statusRegistry.Len())

	// Step 6: Check page routes against the backend contracts.
	oaIndex := openapi.NewIndex()
	if err := oaIndex.Load(cfg.Specs); err != nil {
		logger.Error("OpenAPI index load failed", zap.Error(err))
		return 1
	}
	for _, svc := range oaIndex.Services() {
		metrics.SetOpenAPIOperationsIndexed(svc, len(oaIndex.AllOperationIDs(svc)))
	}
	if mismatches := oaIndex.CheckRoutes(page.AllRoutes()); len(mismatches) > 0 {
		for _, m := range mismatches {
			logger.Warn("route disagrees with backend contract", zap.String("route", m.String()))
		}
		if cfg.Specs.Strict {
			logger.Error("route check failed", zap.Int("mismatches", len(mismatches)))
			return 1
		}
	}

	// Step 7: Build stores.
	sessionStore, optimisticStore := buildStateStores(cfg, rdb, logger)
	idempotencyStore := buildIdempotencyStore(cfg, rdb, logger)

	// pages is assigned in step 9; a backend 401 before then has no
	// loaders to drop.
	var pages *page.Service
	sessions := session.NewManager(sessionStore, cfg.Session, cfg.Demo, session.Options{
		Logger:  logger,
		Metrics: metrics,
		OnEvict: func(id string) {
			if pages != nil {
				pages.Forget(id)
			}
		},
	})
	tracker := optimistic.NewTracker(optimisticStore, cfg.Optimistic.TTL, optimistic.Options{Logger: logger, Metrics: metrics})

	// Step 8: Build invoker registry. The demo invoker answers demo
	// sessions before any backend is dialed.
	httpInvoker := invoker.NewHTTPInvoker(cfg.Services, invoker.Options{
		Logger:         logger,
		Metrics:        metrics,
		OnUnauthorized: sessions.Evict,
	})
	invokerReg := invoker.NewRegistry()
	if cfg.Demo.Enabled {
		demoInvoker, err := demo.New(logger)
		if err != nil {
			logger.Error("demo fixtures failed to load", zap.Error(err))
			return 1
		}
		invokerReg.Register(demoInvoker)
	}
	invokerReg.Register(httpInvoker)

	// Step 9: Build pages.
	resOpts := resource.Options{Logger: logger, Metrics: metrics}
	var dispatchOpts []resource.DispatcherOption
	if idempotencyStore != nil {
		dispatchOpts = append(dispatchOpts, resource.WithIdempotencyStore(idempotencyStore, cfg.Idempotency.DefaultTTL))
	}
	pages = page.New(page.Deps{
		Clients:    page.NewClients(invokerReg),
		Status:     statusRegistry,
		Validator:  validation.New(),
		Dispatcher: resource.NewDispatcher(resOpts, dispatchOpts...),
		Scope:      resource.NewScope(cfg.Session.TTL),
		Fanout:     resource.NewFanout(cfg.Customer360.TimeoutPerBranch, resOpts),
		Optimistic: tracker,
		Options:    resOpts,
	})

	// Step 10: Build HTTP router.
	var jwks *transport.JWKSClient
	if cfg.Identity.JWKSURL != "" {
		jwks = transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL, logger)
	}
	verifier, err := transport.NewVerifier(cfg.Identity, jwks)
	if err != nil {
		logger.Error("token verifier initialization failed", zap.Error(err))
		return 1
	}

	readiness := observability.ReadinessChecks{
		StatusRegistryLoaded: func() bool { return statusRegistry.Len() > 0 },
		BackendsConfigured:   func() bool { return cfg.Demo.Enabled || len(httpInvoker.Services()) > 0 },
		SessionStore:         sessions,
		OptimisticStore:      tracker,
	}
	if idempotencyStore != nil {
		readiness.IdempotencyStore = idempotencyStore
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Authenticate: transport.JWTAuthenticator(verifier),
		Sessions:     sessions,
		Pages:        pages,
		Status:       statusRegistry,
		Metrics:      metrics,
		Gatherer:     prometheus.DefaultGatherer,
		Readiness:    readiness,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Step 11: Start HTTP server.
	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("status_domains", statusRegistry.Len()),
		zap.Bool("demo", cfg.Demo.Enabled),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	// Graceful shutdown sequence.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Flush telemetry.
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// connectRedis dials the shared redis instance and checks it answers.
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	addr := cfg.RedisAddr()
	if addr == "" {
		return nil, fmt.Errorf("redis: no address configured")
	}
	opts := &redis.Options{
		Addr:        addr,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	}
	if cfg.Redis.PasswordEnv != "" {
		opts.Password = os.Getenv(cfg.Redis.PasswordEnv)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return client, nil
}

// buildStateStores creates the session and pending-sync stores based on
// config.
func buildStateStores(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (session.Store, optimistic.Store) {
	var ss session.Store = session.NewMemoryStore()
	if cfg.Session.Driver == "redis" {
		ss = session.NewRedisStore(rdb)
	}
	var ps optimistic.Store = optimistic.NewMemoryStore()
	if cfg.Optimistic.Driver == "redis" {
		ps = optimistic.NewRedisStore(rdb)
	}
	logger.Info("state stores ready",
		zap.String("session_driver", driverName(cfg.Session.Driver)),
		zap.String("optimistic_driver", driverName(cfg.Optimistic.Driver)),
	)
	return ss, ps
}

// buildIdempotencyStore creates the idempotency store based on config.
// Returns nil when action deduplication is disabled.
func buildIdempotencyStore(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) command.IdempotencyStore {
	if !cfg.Idempotency.Enabled {
		return nil
	}
	if cfg.Idempotency.Driver == "redis" {
		logger.Info("using redis idempotency store")
		return command.NewRedisIdempotencyStore(rdb)
	}
	logger.Info("using in-memory idempotency store")
	return command.NewMemoryIdempotencyStore()
}

func driverName(d string) string {
	if d == "" {
		return "memory"
	}
	return d
}
