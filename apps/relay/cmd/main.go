package main

import (
	"context"
	"database/sql"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"celomind/apps/relay/internal/api"
	"celomind/apps/relay/internal/chains"
	"celomind/apps/relay/internal/config"
	"celomind/apps/relay/internal/escrow"
	"celomind/apps/relay/internal/event_publisher"
	"celomind/apps/relay/internal/relay"
	"celomind/apps/relay/internal/repository"
)

func main() {
	// Initialize zap logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Load configuration from environment variables
	cfg := config.NewConfig()

	logger.Info("Starting swap relay with configuration",
		zap.String("db_url", cfg.DbURL),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Uint64("min_confirmations", cfg.MinConfirmations),
		zap.Int("api_port", cfg.APIPort),
	)

	// The derived escrow address must match the configured one; paying out
	// from an unintended account is not a warning condition.
	account, err := escrow.NewAccount(cfg.EscrowPrivateKey, cfg.EscrowAddress)
	if err != nil {
		logger.Fatal("Failed to load escrow account", zap.Error(err))
	}
	logger.Info("Escrow account loaded", zap.String("address", account.Address().Hex()))

	// Connect to database
	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Initialize database tables
	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	swapRepository := repository.NewSwapRepository(db, logger)
	outboxRepository := repository.NewOutboxRepository(db, logger)

	// Dial one client per supported chain
	registry := chains.NewRegistry(cfg.CeloRpcURL, cfg.BaseRpcURL, cfg.ArbitrumRpcURL, cfg.OptimismRpcURL)
	clients := make(map[string]relay.ChainClient)
	for _, name := range registry.ChainNames() {
		profile, _ := registry.GetProfile(name)
		client, err := chains.NewEvmClient(profile, logger)
		if err != nil {
			logger.Fatal("Failed to create chain client", zap.String("chain", name), zap.Error(err))
		}
		defer client.Close()
		clients[name] = client
	}

	matrix := relay.DefaultMatrix(registry)
	preflight := relay.NewPreflightChecker(clients, account.Address(), new(big.Int).SetUint64(cfg.GasReserveWei), logger)
	oracle := relay.NewConfirmationOracle(clients, cfg.MinConfirmations, logger)
	dispatcher := relay.NewDispatcher(matrix, clients, account, preflight, logger)
	scheduler := relay.NewScheduler(swapRepository, oracle, preflight, dispatcher, outboxRepository, cfg.PollInterval, logger)

	// Create event publisher
	eventPublisher, err := event_publisher.NewEventPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger, outboxRepository)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer eventPublisher.Close()

	// Start event publisher in background
	go eventPublisher.StartPublishing()

	// Create and start API server
	swapHandler := api.NewSwapHandler(swapRepository, registry, logger)
	escrowHandler := api.NewEscrowHandler(clients, registry, matrix, account.Address(), logger)
	apiServer := api.NewServer(cfg.APIPort, swapHandler, escrowHandler, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Start relay scheduler in background
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	go func() {
		if err := scheduler.Start(schedulerCtx); err != nil && err != context.Canceled {
			logger.Fatal("Relay scheduler failed", zap.Error(err))
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Received shutdown signal, starting graceful shutdown...")

	cancelScheduler()

	// Create a context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown API server gracefully
	if err := apiServer.Stop(ctx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}

	logger.Info("Relay shutdown complete")
}
