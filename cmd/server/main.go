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

	"github.com/IBM/sarama"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cypherlabdev/betting-node/internal/chain"
	"github.com/cypherlabdev/betting-node/internal/config"
	httpHandler "github.com/cypherlabdev/betting-node/internal/handler/http"
	"github.com/cypherlabdev/betting-node/internal/messaging"
	"github.com/cypherlabdev/betting-node/internal/models"
	"github.com/cypherlabdev/betting-node/internal/observability"
	"github.com/cypherlabdev/betting-node/internal/repository"
	"github.com/cypherlabdev/betting-node/pkg/betting"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Initialize logger
	logger := observability.NewLogger(observability.LoggerConfig{
		Service:     cfg.Service.Name,
		Environment: cfg.Service.Environment,
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		TimeFormat:  cfg.Logging.TimeFormat,
	})
	logger.Info().Msg("betting-node starting")

	// 3. Initialize metrics
	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Connect to PostgreSQL
	var (
		dbPool      *pgxpool.Pool
		dbPinger    httpHandler.Pinger
		persister   chain.Persister
		pgPersister *chain.PostgresPersister
		checkpoints repository.CheckpointRepository
		outboxRepo  repository.OutboxRepository
	)
	if cfg.Database.Enabled {
		dbPool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ping database")
		}
		logger.Info().Msg("database connection established")

		// Migrations in migrations/ are applied as part of deployment
		checkpoints = repository.NewPostgresCheckpointRepository(dbPool, logger)
		outboxRepo = repository.NewPostgresOutboxRepository(dbPool, logger)
		pgPersister = chain.NewPostgresPersister(dbPool, checkpoints, outboxRepo, metrics, logger)
		persister = pgPersister
		dbPinger = dbPool
	} else {
		logger.Warn().Msg("database disabled, blocks are not persisted")
	}

	// 5. Build the node and bring it to the last persisted block
	node := chain.NewBettingNode(repository.NewMemoryStore(), persister, metrics, logger)
	if err := bootstrap(ctx, node, checkpoints, cfg.Chain, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap node")
	}

	// 6. Initialize Kafka producer and block consumer
	var (
		kafkaProducer sarama.SyncProducer
		consumerGroup sarama.ConsumerGroup
	)
	if cfg.Kafka.Enabled {
		kafkaConfig := sarama.NewConfig()
		kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
		kafkaConfig.Producer.Return.Successes = true
		kafkaConfig.Producer.Retry.Max = 3
		kafkaConfig.Producer.Compression = sarama.CompressionSnappy
		kafkaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
		kafkaConfig.Consumer.Offsets.AutoCommit.Enable = true

		if outboxRepo != nil {
			producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaConfig)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to create Kafka producer")
			}
			defer producer.Close()
			kafkaProducer = producer
			logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("kafka producer initialized")

			topics := messaging.Topics{Bets: cfg.Kafka.BetsTopic, Games: cfg.Kafka.GamesTopic}
			publisher := messaging.NewOutboxPublisher(outboxRepo, producer, topics, metrics, logger).
				WithRetention(cfg.Chain.OutboxRetention)
			go publisher.Start(ctx)
		}

		consumerGroup, err = sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, kafkaConfig)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create Kafka consumer group")
		}
		consumer := messaging.NewBlockConsumer(consumerGroup, []string{cfg.Kafka.BlocksTopic}, node, logger)
		go consumer.Start(ctx)
	} else {
		logger.Warn().Msg("kafka disabled, node serves its restored state only")
	}

	if pgPersister != nil {
		go pgPersister.RunPruner(ctx, cfg.Chain.PruneInterval, cfg.Chain.CheckpointsKept)
	}

	// 7. Create HTTP server (health, metrics and read API)
	router := mux.NewRouter()
	router.Use(
		httpHandler.RecoveryMiddleware(logger),
		httpHandler.TracingMiddleware(),
		httpHandler.MetricsMiddleware(metrics),
		httpHandler.LoggingMiddleware(logger),
	)
	router.HandleFunc("/health", httpHandler.HealthHandler()).Methods(http.MethodGet)
	router.HandleFunc("/ready", httpHandler.ReadyHandler(dbPinger, kafkaProducer, logger)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())
	httpHandler.NewAPIHandler(node, logger).Register(router)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down gracefully...")

	// 9. Graceful shutdown
	cancel() // Stop publisher, consumer and pruner

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if consumerGroup != nil {
		if err := consumerGroup.Close(); err != nil {
			logger.Error().Err(err).Msg("consumer group close error")
		}
		logger.Info().Msg("block consumer stopped")
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	logger.Info().Msg("HTTP server stopped")

	head := node.Head()
	logger.Info().Int64("height", head.Height).Str("block_hash", head.Hash).Msg("shutdown complete")
}

// bootstrap restores the latest checkpoint, or seeds genesis when none exists
func bootstrap(
	ctx context.Context,
	node *chain.Node,
	checkpoints repository.CheckpointRepository,
	cfg config.ChainConfig,
	logger zerolog.Logger,
) error {
	if checkpoints != nil {
		checkpoint, err := checkpoints.Latest(ctx)
		switch {
		case err == nil:
			return node.Restore(checkpoint)
		case !errors.Is(err, models.ErrCheckpointNotFound):
			return err
		}
		logger.Info().Msg("no checkpoint found, starting from genesis")
	}

	genesis, err := loadGenesis(cfg)
	if err != nil {
		return err
	}
	return node.InitGenesis(genesis)
}

func loadGenesis(cfg config.ChainConfig) (chain.Genesis, error) {
	if cfg.GenesisFile != "" {
		return chain.LoadGenesis(cfg.GenesisFile)
	}

	genesis := chain.Genesis{
		Time: cfg.GenesisTime,
		Property: models.BettingProperty{
			Moderator:    cfg.Moderator,
			ResolveDelay: cfg.ResolveDelay,
			MinBetStake:  betting.Asset(cfg.MinBetStake),
		},
	}
	return genesis, genesis.Validate()
}
