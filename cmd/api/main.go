package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/adeelqureshi/solana-pool-gateway/internal/ai"
	"github.com/adeelqureshi/solana-pool-gateway/internal/cache"
	"github.com/adeelqureshi/solana-pool-gateway/internal/chain"
	"github.com/adeelqureshi/solana-pool-gateway/internal/config"
	"github.com/adeelqureshi/solana-pool-gateway/internal/cpmm"
	"github.com/adeelqureshi/solana-pool-gateway/internal/flags"
	"github.com/adeelqureshi/solana-pool-gateway/internal/holdings"
	"github.com/adeelqureshi/solana-pool-gateway/internal/metadata"
	"github.com/adeelqureshi/solana-pool-gateway/internal/rpc"
	"github.com/adeelqureshi/solana-pool-gateway/internal/server"
	"github.com/adeelqureshi/solana-pool-gateway/internal/storage"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the pool gateway API server
// It initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	// Initialize structured logger with custom formatting
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	poolProgram := solana.MustPublicKeyFromBase58(cfg.PoolProgramID)
	hookProgram := solana.MustPublicKeyFromBase58(cfg.HookProgramID)
	feeReceiver := solana.MustPublicKeyFromBase58(cfg.FeeReceiver)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Initialize Redis client for caching and feature flags
	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0, // Use default database for main application
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	// Initialize Solana RPC client with retry support
	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	// Wire the pool interaction layer
	engine, err := cpmm.NewEngine(poolProgram, hookProgram)
	if err != nil {
		logger.WithError(err).Fatal("failed to create derivation engine")
	}
	reader := cpmm.NewProgramReader(rpcClient, poolProgram, logger)
	poolCache := cache.NewRedis(rclient, "gateway")
	discovery := cpmm.NewDiscovery(reader, reader, poolCache, logger)
	quoter := cpmm.NewQuoter(discovery, reader)
	submitter := chain.NewSubmitter(rpcClient, logger)

	orchestrator, err := cpmm.NewOrchestrator(engine, reader, submitter, feeReceiver, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create creation orchestrator")
	}

	// Wallet holdings resolver with optional metadata enrichment
	resolver := holdings.NewResolver(rpcClient, metadata.NewClient(cfg.MetadataBaseURL, cfg.MetadataAPIKey), logger)

	// Recent creations feed in Redis
	creationList := cache.NewCreationList(rclient)

	// Persistent creation history in ClickHouse (optional)
	var store storage.CreationStore
	if chStore, err := storage.NewClickHouseStore(
		cfg.ClickHouseAddr, cfg.ClickHouseDatabase,
		cfg.ClickHouseUsername, cfg.ClickHousePassword, logger,
	); err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable, creation history disabled")
	} else {
		store = chStore
		defer func() {
			_ = chStore.Close()
		}()
	}

	// Initialize feature flags store for runtime configuration
	flagStore, err := flags.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}

	// Initialize AI agent for natural language queries (optional)
	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		Logger:             logger,
	}

	// Only initialize AI if OpenRouter API key is provided
	if cfg.OpenRouterAPIKey != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = agent.Close() // Clean up AI resources on shutdown
			}()
		}
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Engine:       engine,
		Discovery:    discovery,
		Quoter:       quoter,
		Orchestrator: orchestrator,
		Holdings:     resolver,
		Creations:    creationList,
		Store:        store,
		Pending:      poolCache,
		Flags:        flagStore,
		AI:           agent,
		AIBaseConfig: aiBase,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}

	// Create HTTP server with configuration and handlers
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.ServerAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()                               // Cancel context to stop ongoing operations
		_ = srv.Shutdown(context.Background()) // Gracefully shutdown HTTP server
	}()

	// Start the HTTP server
	logger.WithField("addr", cfg.ServerAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
