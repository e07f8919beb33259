package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripcart/internal/api"
	"tripcart/internal/config"
	"tripcart/internal/database"
	"tripcart/internal/domain"
	"tripcart/internal/events"
	"tripcart/internal/google"
	"tripcart/internal/logging"
	"tripcart/internal/metrics"
	"tripcart/internal/payment"
	"tripcart/internal/pricing"
	"tripcart/internal/repository"
	"tripcart/internal/service"
	"tripcart/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		go backups.Start(ctx)
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	store := initSessionStore(cfg, redisClient, logger)

	pricingClient := pricing.NewClient(cfg.Pricing, logging.Component(logger, "pricing"))
	if redisClient != nil {
		pricingClient.UseRedisCache(redisClient)
	}
	defer pricingClient.Stop()

	eventBus := initEventBus(logging.Component(logger, "events"))

	deps := service.Deps{
		Store:    store,
		Records:  db,
		Pricing:  pricingClient,
		Payments: payment.NewSimulator(cfg.Payment, logging.Component(logger, "payment")),
		Events:   eventBus,
	}

	if sheetsService := initGoogleSheets(ctx, cfg, logger); sheetsService != nil {
		mirror := worker.NewMirrorWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, logging.Component(logger, "mirror"))
		go mirror.Start(ctx)
		deps.Mirror = mirror
	}

	svc := service.NewBookingService(deps, service.Options{
		TaxRate:          cfg.Pricing.TaxRate,
		SearchRateLimit:  cfg.Session.SearchRateLimit,
		SearchRateWindow: cfg.Session.SearchRateWindow,
		PersistRetry: worker.RetryPolicy{
			MaxRetries:    cfg.Session.PersistRetries,
			InitialDelay:  cfg.Session.PersistRetryDelay,
			MaxDelay:      5 * cfg.Session.PersistRetryDelay,
			BackoffFactor: 2,
		},
		ExportDir: cfg.Exports.Path,
	}, logging.Component(logger, "booking"))

	checks := map[string]api.ReadyCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
	}

	httpServer := api.NewHTTPServer(cfg.API, svc, checks, logging.Component(logger, "http"))

	startMetrics(ctx, cfg, logger)

	return startServers(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initSessionStore keeps sessions in redis with an in-memory fallback, or in
// memory only when redis is not configured.
func initSessionStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SessionStore {
	memory := repository.NewMemorySessionStore(cfg.Session.TTL)
	if redisClient == nil {
		logger.Warn().Msg("sessions are kept in memory only")
		return memory
	}
	primary := repository.NewRedisSessionStore(redisClient, cfg.Session.TTL)
	return repository.NewFailoverSessionStore(primary, memory, logging.Component(logger, "sessions"))
}

func initEventBus(logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	logEvent := func(e *events.Event) error {
		logger.Info().Str("event", e.Type).RawJSON("payload", e.Payload).Msg("domain event")
		return nil
	}
	for _, t := range []string{
		events.EventSessionCreated,
		events.EventSessionReset,
		events.EventSearchFailed,
		events.EventPaymentFailed,
		events.EventBookingConfirmed,
		events.EventBookingCancelled,
	} {
		bus.Subscribe(t, logEvent)
	}
	return bus
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		if email, emailErr := google.GetServiceAccountEmail(cfg.Google.GoogleCredentialsFile); emailErr == nil {
			logger.Warn().Err(err).Str("service_account", email).Msg("spreadsheet is not reachable, share it with the service account")
		} else {
			logger.Warn().Err(err).Msg("spreadsheet is not reachable")
		}
		return nil
	}
	if err := sheetsService.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to write sheet header")
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to warm up sheet row cache")
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.HTTP.ShutdownTimeout)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
