package cmd

import (
	"context"
	"fmt"
	"time"

	"skillstreak/cache"
	"skillstreak/config"
	"skillstreak/database"
	"skillstreak/events"
	"skillstreak/infrastructure"
	"skillstreak/infrastructure/observability"
	"skillstreak/repository"
	"skillstreak/server"
	"skillstreak/service"
	"skillstreak/worker"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the engine's HTTP service
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting skillstreak engine...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	observability.RegisterBusMetrics(eventBus, metrics)
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	clock := service.SystemClock{}
	stakingService := service.NewStakingService(uowFactory, cfg, clock)
	marketService := service.NewMarketService(uowFactory, cfg, clock)
	var accountService service.AccountService = service.NewAccountService(uowFactory, cfg, clock)

	natsClient, err := connectNATS(ctx, cfg, eventBus, metrics)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer natsClient.Close()
	}

	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cache.ClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()

		accountCache := cache.NewAccountCache(redisClient, cfg.AccountCacheTTL)
		cache.RegisterInvalidation(eventBus, accountCache)
		accountService = cache.NewCachedAccountService(accountService, accountCache, clock, metrics)
		log.WithFields(log.Fields{
			"addr": cfg.RedisAddr,
			"ttl":  cfg.AccountCacheTTL,
		}).Info("Account cache enabled")
	}

	if cfg.AuditInterval > 0 {
		stopAuditor := worker.NewConservationAuditor(stakingService, metrics).Start(ctx, cfg.AuditInterval)
		defer stopAuditor()
	}

	handler := server.New(server.Services{
		Staking:  stakingService,
		Markets:  marketService,
		Accounts: accountService,
	}, metrics)

	err = server.ListenAndServe(ctx, cfg.HTTPAddr, handler)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := observability.ShutdownGlobalMetrics(shutdownCtx); serr != nil {
		log.WithError(serr).Warn("Failed to shut down metrics")
	}

	log.Info("Shutdown completed")
	return err
}

// connectNATS wires event forwarding when NATS servers are configured
func connectNATS(ctx context.Context, cfg *config.Config, bus *events.Bus, metrics *observability.MetricsProvider) (*infrastructure.NATSClient, error) {
	if cfg.NATSServers == "" {
		log.Info("NATS servers not configured, event forwarding disabled")
		return nil, nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, err
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureEventStream(client, mapper); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	infrastructure.NewNATSEventForwarder(client, mapper, metrics).Register(bus)
	return client, nil
}

// ConfigureLogging applies the configured level and picks JSON output in production
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
