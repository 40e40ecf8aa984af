package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aulaplatform/aulaledger/internal/cache"
	"github.com/aulaplatform/aulaledger/internal/db"
	"github.com/aulaplatform/aulaledger/internal/handlers"
	"github.com/aulaplatform/aulaledger/internal/logger"
	"github.com/aulaplatform/aulaledger/internal/repository/postgres"
	"github.com/aulaplatform/aulaledger/internal/service/ledger"
	"github.com/aulaplatform/aulaledger/internal/service/progress"
	"github.com/aulaplatform/aulaledger/internal/service/rates"
	"github.com/aulaplatform/aulaledger/internal/service/settlement"
	"github.com/aulaplatform/aulaledger/internal/service/stats"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Wallet read cache is optional and enabled by configuring redis
	var walletCache *cache.WalletCache
	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		walletCache = cache.NewWalletCache(rdb)
	}

	// Initialize services
	ratesProvider := rates.NewProvider(storage.Rate())
	ledgerService := ledger.NewService(storage, ratesProvider)
	settlementService := settlement.NewService(storage, ledgerService, logger)
	statsService := stats.NewService(storage.Transaction())
	progressClient := progress.NewClient(c.ProgressAddr, logger)
	seeder := progress.NewSeeder(progressClient, ledgerService, logger)

	mux := handlers.NewRouter(
		ledgerService,
		settlementService,
		statsService,
		seeder,
		walletCache,
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     logger,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
