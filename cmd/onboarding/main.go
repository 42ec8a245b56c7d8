package main

import (
	"account_onboarding/internal/api"
	"account_onboarding/internal/config"
	"account_onboarding/internal/processor"
	"account_onboarding/internal/repository"
	"account_onboarding/internal/repository/memory"
	"account_onboarding/internal/repository/postgres"
	"account_onboarding/internal/service"
	"account_onboarding/pkg/crypto"
	"account_onboarding/pkg/metrics"
	"account_onboarding/pkg/rabbitmq"
	"account_onboarding/pkg/redisstream"
	"account_onboarding/pkg/validator"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	appName = "account_onboarding"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := setupLogger(cfg.Level())
	slog.SetDefault(logger)
	logger.Info("Starting application",
		slog.String("name", appName),
		slog.String("store", cfg.StoreDriver),
		slog.Int("pipeline_workers", cfg.PipelineWorkers))

	ctx := context.Background()

	metricsCollector := metrics.NewMetricsCollector(logger)
	repo, db, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialise store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	notificationService, err := setupNotificationService(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialise notifications", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dispatcher := processor.NewDispatcher(cfg.PipelineWorkers, metricsCollector, logger)
	pipeline := processor.NewProcessingPipeline(repo, processor.NewRuleEngine(), notificationService, metricsCollector, logger)
	accountService := service.NewAccountService(repo, pipeline, dispatcher, metricsCollector, logger)

	reporter := service.NewStatusReporter(repo, metricsCollector, cfg.StatusReportSchedule, logger)
	if err := reporter.Start(); err != nil {
		logger.Error("Failed to start status reporter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	apiHandler := api.NewAPIHandler(accountService, validator.NewRequestValidator(), logger)
	limiter := api.NewRateLimiter(cfg.CreateRateLimitPerSecond, cfg.CreateRateBurst, logger)
	metricsServer := metricsCollector.StartMetricsServer(cfg.MetricsAddr)
	httpServer := startHTTPServer(cfg.ServerPort, api.NewRouter(apiHandler, limiter, metricsCollector), logger)

	waitForShutdown(logger, cfg.ShutdownTimeout, httpServer, metricsServer, dispatcher, notificationService, reporter, metricsCollector, db)
	logger.Info("Application shutdown complete")
}

func setupLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func setupStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.AccountRequestRepository, *sql.DB, error) {
	if cfg.StoreDriver != config.StorePostgres {
		return memory.NewAccountRequestRepository(), nil, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	if cfg.RunMigrations {
		if err := postgres.Migrate(db, logger); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	return postgres.NewAccountRequestRepository(db), db, nil
}

func setupNotificationService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*service.NotificationService, error) {
	var signer *crypto.Signer
	if cfg.SigningSecret != "" {
		signer = crypto.NewSigner(cfg.SigningSecret, logger)
	}

	var channels []service.NotificationChannel
	for _, name := range cfg.Channels() {
		switch name {
		case config.ChannelLog:
			channels = append(channels, service.NewLogChannel(logger))
		case config.ChannelAMQP:
			producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
			if err != nil {
				return nil, err
			}
			channels = append(channels, service.NewAMQPChannel(producer, signer, cfg.NotificationExchange, cfg.NotificationRoutingKey))
		case config.ChannelRedis:
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to connect to redis: %w", err)
			}
			publisher := redisstream.NewPublisher(client, cfg.NotificationStreamLen)
			channels = append(channels, service.NewRedisStreamChannel(publisher, signer, cfg.NotificationStream))
		}
	}

	notificationService := service.NewNotificationService(channels, logger)
	logger.Info("Notification channels configured", slog.Any("channels", notificationService.Channels()))
	return notificationService, nil
}

func startHTTPServer(port string, handler http.Handler, logger *slog.Logger) *http.Server {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	logger *slog.Logger,
	timeout time.Duration,
	httpServer *http.Server,
	metricsServer *http.Server,
	dispatcher *processor.Dispatcher,
	notificationService *service.NotificationService,
	reporter *service.StatusReporter,
	metricsCollector *metrics.MetricsCollector,
	db *sql.DB,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := dispatcher.Shutdown(ctx); err != nil {
		logger.Error("Dispatcher shutdown failed", slog.String("error", err.Error()))
	}

	if err := reporter.Stop(ctx); err != nil {
		logger.Error("Status reporter shutdown failed", slog.String("error", err.Error()))
	}

	if err := notificationService.Shutdown(ctx); err != nil {
		logger.Error("Notification service shutdown failed", slog.String("error", err.Error()))
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("Database close failed", slog.String("error", err.Error()))
		}
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}
	if err := metricsCollector.Shutdown(ctx); err != nil {
		logger.Error("Metrics collector shutdown failed", slog.String("error", err.Error()))
	}
}
