package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"marketplace-auction-service/internal/adapters/broadcaster"
	"marketplace-auction-service/internal/adapters/db"
	"marketplace-auction-service/internal/adapters/memory"
	"marketplace-auction-service/internal/adapters/redis"
	"marketplace-auction-service/internal/adapters/rest"
	"marketplace-auction-service/internal/adapters/scheduler"
	"marketplace-auction-service/internal/app"
	"marketplace-auction-service/internal/config"
	"marketplace-auction-service/internal/domain/shared"
	"marketplace-auction-service/internal/ports/outbound"
)

// sweepLockKey elects the instance that runs the status sweep
const sweepLockKey = "auction:sweep:leader"

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogging(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Str("store", cfg.Store.Driver).Msg("Starting Marketplace Auction Service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, closeStore := initStore(ctx, cfg)
	defer closeStore()

	// Event publishing and the sweep lock both need Redis
	var redisClient *goredis.Client
	if cfg.Events.Enabled || cfg.Sweep.Enabled {
		redisClient, err = redis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		log.Info().Msg("Redis connection established")
	}

	var publisher outbound.EventPublisher
	var fanout *broadcaster.FanoutPublisher
	if cfg.Events.Enabled {
		natsConn, err := nats.Connect(cfg.Nats.URL, nats.Name("marketplace-auction-service"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer natsConn.Drain()

		jetStreamPublisher, err := broadcaster.NewJetStreamPublisher(ctx, broadcaster.JetStreamPublisherParams{
			Conn:   natsConn,
			Stream: cfg.Nats.Stream,
			Logger: log.Logger,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize JetStream publisher")
		}

		fanout = broadcaster.NewFanoutPublisher(broadcaster.FanoutPublisherParams{
			Targets: []outbound.EventPublisher{
				broadcaster.NewRedisPublisher(broadcaster.RedisPublisherParams{
					RedisClient: redisClient,
					Logger:      log.Logger,
				}),
				jetStreamPublisher,
			},
			MaxWorkers:  cfg.Events.MaxWorkers,
			MaxCapacity: cfg.Events.MaxCapacity,
			Logger:      log.Logger,
		})
		publisher = fanout
		log.Info().Str("stream", cfg.Nats.Stream).Msg("Event publishers initialized")
	}

	// Create business services
	clock := shared.SystemClock{}
	resolver := app.NewStatusResolver(app.StatusResolverParams{
		AuctionRepo: repos.AuctionRepository,
		Publisher:   publisher,
		Logger:      log.Logger,
	})
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo:      repos.AuctionRepository,
		BidRepo:          repos.BidRepository,
		CategoryRepo:     repos.CategoryRepository,
		Resolver:         resolver,
		Publisher:        publisher,
		Clock:            clock,
		OperationTimeout: cfg.Auction.OperationTimeout,
		Logger:           log.Logger,
	})
	bidService := app.NewBidService(app.BidServiceParams{
		TxManager:        repos.TxManager,
		AuctionRepo:      repos.AuctionRepository,
		BidRepo:          repos.BidRepository,
		Resolver:         resolver,
		Publisher:        publisher,
		Clock:            clock,
		OperationTimeout: cfg.Auction.OperationTimeout,
		Logger:           log.Logger,
	})
	settlementService := app.NewSettlementService(app.SettlementServiceParams{
		TxManager:        repos.TxManager,
		AuctionRepo:      repos.AuctionRepository,
		BidRepo:          repos.BidRepository,
		OrderRepo:        repos.OrderRepository,
		Publisher:        publisher,
		Clock:            clock,
		OperationTimeout: cfg.Auction.OperationTimeout,
		Logger:           log.Logger,
	})

	log.Info().Msg("Business services initialized")

	var sweepScheduler *scheduler.SweepScheduler
	if cfg.Sweep.Enabled {
		sweepScheduler = scheduler.NewSweepScheduler(scheduler.SweepSchedulerParams{
			Sweeper:  auctionService,
			Locker:   redis.NewLeaderLock(redisClient, sweepLockKey),
			Interval: cfg.Sweep.Interval,
			LockTTL:  cfg.Sweep.LockTTL,
			Logger:   log.Logger,
		})
		sweepScheduler.Start()
		log.Info().Dur("interval", cfg.Sweep.Interval).Msg("Sweep scheduler started")
	}

	server := rest.NewServer(rest.ServerParams{
		Config:            cfg,
		AuctionService:    auctionService,
		BidService:        bidService,
		SettlementService: settlementService,
		Logger:            log.Logger,
	})

	// Start HTTP server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start HTTP server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if sweepScheduler != nil {
		sweepScheduler.Stop()
		log.Info().Msg("Sweep scheduler stopped")
	}

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	}

	// flush events produced by in-flight requests
	if fanout != nil {
		fanout.Close()
	}

	log.Info().Msg("Graceful shutdown completed")
}

// initStore builds the configured auction store and returns a func that releases it
func initStore(ctx context.Context, cfg *config.Config) (db.Repositories, func()) {
	if cfg.Store.Driver == config.DriverMemory {
		store := memory.NewStore(memory.StoreParams{Logger: log.Logger})
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return db.Repositories{
			AuctionRepository:  store,
			BidRepository:      store,
			CategoryRepository: store,
			OrderRepository:    store,
			TxManager:          store,
		}, func() {}
	}

	dbConn, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Database connection established")

	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(dbConn, log.Logger); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	repos := db.NewRepositoryFactory(dbConn, cfg.Auction.TxMaxRetries, log.Logger).GetAllRepositories()
	log.Info().Msg("Database repositories initialized")
	return repos, func() {
		if err := dbConn.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
