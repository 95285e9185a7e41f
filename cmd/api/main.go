package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rebeccayomide/BitcoinBridge/internal/api"
	"github.com/Rebeccayomide/BitcoinBridge/internal/bridge"
	"github.com/Rebeccayomide/BitcoinBridge/internal/config"
	"github.com/Rebeccayomide/BitcoinBridge/internal/events"
	"github.com/Rebeccayomide/BitcoinBridge/internal/hostledger"
	"github.com/Rebeccayomide/BitcoinBridge/internal/log"
	"github.com/Rebeccayomide/BitcoinBridge/internal/metrics"
	"github.com/Rebeccayomide/BitcoinBridge/pkg/kv"
	_ "github.com/Rebeccayomide/BitcoinBridge/pkg/kv/memory"
	_ "github.com/Rebeccayomide/BitcoinBridge/pkg/kv/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting Bitcoin Bridge API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"version", "v1.0.0",
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("bitcoin-bridge")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Setup key-value store for ledger persistence
	store, err := kv.NewStoreFromConfig(kv.Config{
		Backend:  kv.Backend(cfg.Store.Backend),
		RedisURL: cfg.Store.RedisURL,
	})
	if err != nil {
		logger.Fatalw("Failed to setup kv store", "error", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		logger.Fatalw("KV store ping failed", "error", err)
	}
	logger.Infow("KV store ready", "backend", cfg.Store.Backend)

	// Seed the in-process host ledger. Genesis allocations make the
	// service exercisable end-to-end in dev.
	alloc, err := cfg.Bridge.ParseGenesisAlloc()
	if err != nil {
		logger.Fatalw("Invalid genesis allocation", "error", err)
	}
	genesis := make(map[hostledger.Account]uint64, len(alloc))
	for addr, amount := range alloc {
		genesis[hostledger.Account(addr)] = amount
	}
	host := hostledger.NewInMemory(genesis)

	// Event hub feeds the SSE stream with ledger notifications
	hub := events.NewHub()

	// Setup the bridge ledger and restore persisted state
	ledger := bridge.NewLedger(host, bridge.Address(cfg.Bridge.OperatorAddress), logger,
		bridge.WithCustodyAccount(hostledger.Account(cfg.Bridge.CustodyAccount)),
		bridge.WithFeeRecipient(hostledger.Account(cfg.Bridge.FeeRecipient)),
		bridge.WithSupportedNetworks(cfg.Bridge.SupportedNetworks),
		bridge.WithStore(bridge.NewStore(store)),
		bridge.WithNotifier(hub),
	)
	if err := ledger.Restore(ctx); err != nil {
		logger.Fatalw("Failed to restore bridge state", "error", err)
	}

	// Setup API handler and middleware
	handler := api.NewHandler(ledger, hub, logger, metricsObj)
	middleware := api.NewMiddleware(logger, metricsObj)

	// Create router with middleware and routes - pass security config to Routes
	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM)

	// Log configured CORS origins for easier debugging in dev
	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Add metrics endpoint
	router.Handle("/metrics", metricsHandler)

	// Setup HTTP server. WriteTimeout stays zero so the SSE stream is not
	// cut off; the timeout middleware bounds the other routes.
	server := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
