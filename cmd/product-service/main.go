package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/config"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/database"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/httpclient"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/kafka"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/logger"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/middleware"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/observability/metrics"
	"github.com/Pulkitg-senkusha/Products-Cart/pkg/product"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		logger.Log.WithError(err).Fatal("invalid configuration")
	}

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	repo := product.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate product table")
	}

	m := metrics.New()

	source := product.NewSourceClient(
		httpclient.New(cfg.SourceTimeout),
		cfg.ProductBaseURL,
		cfg.RapidAPIKey,
		cfg.RapidAPIHost,
		m,
	)

	var publisher product.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
	}

	svc := product.NewService(source, repo, publisher, m)
	handler := product.NewHandler(svc, cfg.FetchLimit)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	handler.Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Product Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Product Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Product Service stopped")
}
