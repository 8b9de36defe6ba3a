package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"shopkeep/m/internal/api"
	"shopkeep/m/internal/auth"
	"shopkeep/m/internal/config"
	"shopkeep/m/internal/database"
	"shopkeep/m/internal/ledger"
	"shopkeep/m/internal/logging"
	"shopkeep/m/internal/metrics"
	"shopkeep/m/internal/migrations"
	"shopkeep/m/internal/sales"
	"shopkeep/m/internal/seed"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(logging.Config{
		Development: cfg.AppEnv == "development",
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.MaxOpenConns)
	if err != nil {
		logger.Fatal("could not connect to database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to database", zap.String("driver", cfg.DatabaseDriver))

	if err := migrations.Run(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	stock := ledger.New(db, cfg.OversellPolicy, logger.Named("ledger"))
	if cfg.StockSeedPath != "" {
		if _, err := seed.LoadStockFile(context.Background(), db, stock, cfg.StockSeedPath, logger.Named("seed")); err != nil {
			logger.Error("stock seed failed", zap.String("path", cfg.StockSeedPath), zap.Error(err))
		}
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, "shopkeep"),
	)

	verifier, err := auth.NewStaticVerifier(cfg.AdminUser, cfg.AdminHash, cfg.AdminPassword)
	if err != nil {
		logger.Fatal("invalid admin credentials", zap.Error(err))
	}

	recorder := sales.NewRecorder(db)
	handler := api.New(api.Deps{
		DB:          db,
		Stock:       stock,
		Checkout:    sales.NewCoordinator(db, stock, recorder, cfg.SaleTimeout, collector, logger.Named("sales")),
		Sales:       recorder,
		Verifier:    verifier,
		Issuer:      auth.NewIssuer(cfg.Secret, cfg.TokenTTL),
		Gatherer:    registry,
		CORSOrigins: cfg.CORSOrigins,
		NewSaleID:   sales.NewSaleID,
		Logger:      logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("shopkeep server starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("oversell_policy", cfg.OversellPolicy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SaleTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
