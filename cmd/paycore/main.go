package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/nivocore/paycore/internal/config"
	"github.com/nivocore/paycore/internal/dbx"
	"github.com/nivocore/paycore/internal/httpapi"
	"github.com/nivocore/paycore/internal/interest"
	"github.com/nivocore/paycore/internal/leasecache"
	"github.com/nivocore/paycore/internal/ledgerstore"
	"github.com/nivocore/paycore/internal/logging"
	"github.com/nivocore/paycore/internal/metrics"
	"github.com/nivocore/paycore/internal/money"
	"github.com/nivocore/paycore/internal/transfer"
	"github.com/nivocore/paycore/internal/txlogstore"
	"github.com/nivocore/paycore/internal/walletstore"
)

const serviceName = "paycore"

func main() {
	appLogger := logging.NewFromEnv(serviceName)

	cfg, err := config.Load()
	if err != nil {
		appLogger.Fatalf("failed to load configuration: %v", err)
	}

	appLogger.Info("starting paycore...")
	appLogger.WithField("environment", cfg.Environment).Info("environment configured")
	appLogger.WithField("port", cfg.ServicePort).Info("port configured")

	db, err := dbx.NewFromConfig(cfg)
	if err != nil {
		appLogger.Fatalf("failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()
	appLogger.Info("connected to database")

	migrationsDir := getEnvOrDefault("MIGRATIONS_DIR", "./migrations")
	migrator := dbx.NewMigrator(db.DB, migrationsDir)
	if err := migrator.Up(); err != nil {
		appLogger.Fatalf("failed to apply migrations: %v", err)
	}
	appLogger.Info("migrations applied")

	redisCache, err := leasecache.NewRedisCache(leasecache.DefaultConfig(cfg.CacheURL))
	if err != nil {
		appLogger.Fatalf("failed to connect to cache: %v", err)
	}
	defer func() { _ = redisCache.Close() }()
	appLogger.Info("connected to cache")

	wallets := walletstore.NewStore(db.DB)
	txlog := txlogstore.NewStore(db.DB)
	ledger := ledgerstore.NewStore()

	maxTransferAmount, err := money.Parse(cfg.MaxTransferAmount)
	if err != nil {
		appLogger.Fatalf("invalid MAX_TRANSFER_AMOUNT: %v", err)
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	coordinator := transfer.New(db, wallets, txlog, ledger, redisCache, collector, appLogger, transfer.Config{
		IdempotencyTTL:    time.Duration(cfg.IdempotencyTTLSeconds) * time.Second,
		LeaseTTL:          time.Duration(cfg.LeaseTTLSeconds) * time.Second,
		MaxTransferAmount: maxTransferAmount,
		DefaultCurrency:   cfg.DefaultCurrency,
	})

	defaultRate, err := decimal.NewFromString(cfg.DefaultAnnualRate)
	if err != nil {
		appLogger.Fatalf("invalid DEFAULT_ANNUAL_RATE: %v", err)
	}
	rates := interest.NewRateStore(db.DB, defaultRate, interest.BasisActual365)
	calcs := interest.NewStore(db.DB)
	calculator := interest.New(wallets, rates, calcs, collector, appLogger)

	router := httpapi.NewRouter(coordinator, calculator, wallets, collector, appLogger)

	addr := fmt.Sprintf(":%d", cfg.ServicePort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Warn("server forced to shutdown")
	}
	appLogger.Info("server stopped gracefully")
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
