package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"ledger/internal/amqp"
	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/core"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	trusted, err := cfg.TrustedNetworks()
	if err != nil {
		logger.Error("Invalid trusted proxies", "error", err)
		os.Exit(1)
	}
	clock := cli.Clock(cfg)

	store := cli.InitStore(context.Background(), logger, cfg)

	reportCache := cache.NewLRUCache[[]core.MonthlyCashflow](cfg.CashflowCacheSize, cfg.CashflowCacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(time.Minute)

	cashflow := services.NewCashflowService(store.Store, clock,
		services.WithReportCache(reportCache),
		services.WithCashflowLogger(logger.WithComponent(applog.ComponentCashflow)))

	ledgerOpts := []services.LedgerOption{
		services.WithInvalidator(cashflow),
		services.WithLedgerLogger(logger.WithComponent(applog.ComponentLedger)),
	}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP))
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			ledgerOpts = append(ledgerOpts, services.WithPublisher(amqpClient))
			logger.Info("Change events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	ledger := services.NewLedgerService(store.Store, core.NewValidator(clock), ledgerOpts...)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:        cfg.Addr(),
		Ledger:      ledger,
		Cashflow:    cashflow,
		Store:       store.Store,
		Resolver:    auth.NewProxyHeaderResolver(cfg.AuthUserHeader, trusted),
		Trusted:     trusted,
		RateLimit:   ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute, CleanupInterval: 5 * time.Minute},
		Clock:       clock,
		Logger:      logger.WithComponent(applog.ComponentHTTP),
		ReportCache: reportCache,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", "error", err)
			}
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	})

	logger.Info("Starting ledger server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
