package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"converter-service/internal/adapter/postgres"
	"converter-service/internal/handler"
	"converter-service/internal/server"
	"converter-service/internal/service"
	"converter-service/internal/usecase"
	"converter-service/pkg/config"
	"converter-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log := logger.Init(cfg.Log.Level)

	log.Info("Starting app...")

	// the converter keeps working without a store; conversions are then
	// reported as not persisted
	var repo postgres.ConversionRepository
	dsn := postgres.BuildDSN(*cfg)
	dbPool, err := postgres.InitDBPool(dsn, log)
	if err != nil {
		log.WithError(err).Error("History store unavailable, running without persistence")
	} else {
		defer dbPool.Close()
		if err := postgres.RunMigrations(dsn, cfg.Postgres.MigrationsPath, log); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		repo = postgres.NewPostgresRepo(dbPool, log)
		log.Info("Initialized database pool")
	}

	// initialize adapters
	providers := server.NewProviders(*cfg, log)
	if len(providers) == 0 {
		log.Warn("No rate providers available, every conversion will fail")
	}
	log.Infof("Initialized %d rate providers", len(providers))

	// initialize service
	converterService := service.NewConverterService(providers, repo, service.OptionsFromConfig(*cfg), log)
	log.Info("Initialized service layer")

	pairs, err := server.SnapshotPairs(*cfg)
	if err != nil {
		log.Fatalf("Invalid snapshot pairs: %v", err)
	}

	// initialize usecase
	currencyUsecase := usecase.NewCurrencyUsecase(converterService, usecase.Options{
		JobTTL:        cfg.Converter.JobTTL,
		SnapshotPairs: pairs,
	}, log)
	log.Info("Initialized usecase layer")

	currencyHandler := handler.NewCurrencyHandler(currencyUsecase, log)

	gin.SetMode(gin.ReleaseMode)
	r, err := server.NewRouter(*cfg, currencyHandler, log)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	// task sheduler
	c := cron.New()

	if cfg.Snapshots.Enabled {
		_, err = c.AddFunc(cfg.Snapshots.Schedule, func() {
			log.Info("Recording scheduled rate snapshots...")
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Converter.ConvertTimeout)
			defer cancel()

			result, err := currencyUsecase.RefreshSnapshots(ctx)
			if err != nil {
				log.Errorf("Error recording rate snapshots: %v", err)
				return
			}
			log.Infof("Recorded %d of %d rate snapshots", result.Stored, result.Requested)
		})
		if err != nil {
			log.Fatalf("Error by add task to shedule: %v", err)
		}

		c.Start()
		log.Infof("Sheduler initialized, snapshots on %q", cfg.Snapshots.Schedule)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server starting on port %s...", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Got shutdown signal...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Error server shutdown: ", err)
	}
	log.Info("Server stopped")

	<-c.Stop().Done()
	log.Info("Sheduler stopped")

	log.Info("Gracefuly shutdowned")
}
