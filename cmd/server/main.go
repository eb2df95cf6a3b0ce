package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acalderon/cartera/internal/clients/cryptocompare"
	"github.com/acalderon/cartera/internal/clients/exchangerate"
	"github.com/acalderon/cartera/internal/clients/yahoo"
	"github.com/acalderon/cartera/internal/config"
	"github.com/acalderon/cartera/internal/database"
	"github.com/acalderon/cartera/internal/modules/allocation"
	"github.com/acalderon/cartera/internal/modules/custodians"
	"github.com/acalderon/cartera/internal/modules/dividends"
	"github.com/acalderon/cartera/internal/modules/portfolio"
	"github.com/acalderon/cartera/internal/modules/transactions"
	"github.com/acalderon/cartera/internal/pricing"
	"github.com/acalderon/cartera/internal/scheduler"
	"github.com/acalderon/cartera/internal/seed"
	"github.com/acalderon/cartera/internal/server"
	"github.com/acalderon/cartera/pkg/logger"
)

const priceCacheTTL = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Cartera")

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Price providers
	yahooClient := yahoo.NewClient(log)
	cryptoClient := cryptocompare.NewClient(cfg.CryptoCompareKey, log)
	fxClient := exchangerate.NewClient(log)

	priceCache := pricing.NewCache(priceCacheTTL, nil)
	resolver := pricing.NewResolver(priceCache, yahooClient, cryptoClient, fxClient, cfg.SettlementCurrency, log)

	// Repositories
	txnRepo := transactions.NewRepository(db.Conn(), log)
	custodianRepo := custodians.NewRepository(db.Conn(), log)
	allocationRepo := allocation.NewRepository(db.Conn(), log)
	dividendRepo := dividends.NewRepository(db.Conn(), log)

	if err := allocationRepo.EnsureDefaults(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed allocation targets")
	}

	// Services
	portfolioSvc := portfolio.NewService(txnRepo, resolver, log)
	txnSvc := transactions.NewService(txnRepo, yahooClient, resolver, cfg.SettlementCurrency, log)
	allocationSvc := allocation.NewService(allocationRepo, portfolioSvc, log)
	custodianSvc := custodians.NewService(custodianRepo, portfolioSvc, log)
	dividendSvc := dividends.NewService(dividendRepo, portfolioSvc, yahooClient, cfg.SettlementCurrency, log)

	if cfg.SeedExampleData {
		if err := seed.Run(txnRepo, custodianRepo, dividendRepo, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed example data")
		}
	}

	// Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob("@every 15m", &scheduler.CacheSweepJob{Cache: priceCache, Log: log}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache sweep job")
	}
	if cfg.SyncDividends {
		job := &scheduler.DividendSyncJob{Service: dividendSvc, Feed: yahooClient}
		if err := sched.AddJob("30 6 * * *", job); err != nil {
			log.Fatal().Err(err).Msg("Failed to register dividend sync job")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		DevMode: cfg.DevMode,
		Modules: server.Modules{
			Transactions: transactions.NewHandlers(txnSvc, log),
			Portfolio:    portfolio.NewHandlers(portfolioSvc, log),
			Allocation:   allocation.NewHandlers(allocationSvc, allocationRepo, log),
			Custodians:   custodians.NewHandlers(custodianSvc, log),
			Dividends:    dividends.NewHandlers(dividendSvc, yahooClient, log),
		},
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
