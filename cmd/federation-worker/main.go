package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gatherly-app/gatherly-backend/internal/activitypub"
	"github.com/gatherly-app/gatherly-backend/internal/discovery"
	"github.com/gatherly-app/gatherly-backend/internal/events"
	"github.com/gatherly-app/gatherly-backend/internal/inbox"
	"github.com/gatherly-app/gatherly-backend/internal/outbox"
	"github.com/gatherly-app/gatherly-backend/internal/relationships"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/db"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/metrics"
	"github.com/gatherly-app/gatherly-backend/pkg/migrate"
	"github.com/gatherly-app/gatherly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "federation-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "federation-worker"

	logg = logger.New(logger.Options{
		ServiceName: "federation-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis client", err)
		}
	}()

	fedMetrics := metrics.NewFederationMetrics(prometheus.DefaultRegisterer)
	codec := activitypub.NewCodec()

	relationshipsRepo := relationships.NewRepository(dbClient.DB())
	directoryRepo := discovery.NewRepository(dbClient.DB())

	discoveryClient, err := discovery.NewClient(discovery.Params{
		Logger:    logg,
		Cache:     redisClient,
		Directory: directoryRepo,
		Timeout:   cfg.Federation.WebfingerTimeout,
		CacheTTL:  cfg.Federation.ActorCacheTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build discovery client", err)
		os.Exit(1)
	}

	resolver, err := outbox.NewResolver(relationshipsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to build recipient resolver", err)
		os.Exit(1)
	}

	dispatcher, err := outbox.NewDispatcher(outbox.DispatcherParams{
		Logger:     logg,
		Repo:       outbox.NewRepository(dbClient.DB()),
		Calendars:  outbox.NewCalendars(dbClient.DB()),
		Recipients: resolver,
		Discovery:  discoveryClient,
		Deliverer:  outbox.NewHTTPDeliverer(nil, cfg.Federation.DeliveryTimeout),
		Codec:      codec,
		Metrics:    fedMetrics,
		BatchSize:  cfg.Federation.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build outbox dispatcher", err)
		os.Exit(1)
	}

	eventsService, err := events.NewService(events.ServiceParams{
		Logger:     logg,
		Repository: events.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build events service", err)
		os.Exit(1)
	}

	ingestor, err := inbox.NewIngestor(inbox.IngestorParams{
		Logger:        logg,
		Repo:          inbox.NewRepository(dbClient.DB()),
		Accounts:      inbox.NewAccounts(dbClient.DB()),
		Relationships: relationshipsRepo,
		Events:        eventsService,
		Codec:         codec,
		Metrics:       fedMetrics,
		BatchSize:     cfg.Federation.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build inbox ingestor", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Dispatcher: dispatcher,
		Ingestor:   ingestor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create federation worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "federation-worker",
	})
	logg.Info(ctx, "starting federation worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "federation worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "federation worker shutting down gracefully")
}
