// cmd/api-server/main.go
package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"feedback-pipeline/internal/api"
	"feedback-pipeline/internal/cache"
	awsclients "feedback-pipeline/internal/common/aws"
	"feedback-pipeline/internal/common/config"
	httpclient "feedback-pipeline/internal/common/http"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/guardrails"
	"feedback-pipeline/internal/intake"
	"feedback-pipeline/internal/retrieval"
	"feedback-pipeline/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting api-server...")

	ctx := context.Background()

	store, err := storage.NewDynamoStore(ctx, cfg.AWS.Region, cfg.AWS.DynamoDB.Table, log)
	if err != nil {
		zapLog.Fatal("dynamodb client failed", zap.Error(err))
	}

	queue, err := awsclients.NewSQSClient(ctx, cfg.AWS.Region, cfg.AWS.SQS.QueueURL)
	if err != nil {
		zapLog.Fatal("sqs client failed", zap.Error(err))
	}

	// The cache probes redis once at startup and falls back to the
	// in-memory store when it is unreachable.
	cacheStore := cache.New(cfg.Database.Redis, log)

	retrievalSvc := retrieval.NewService(store, cacheStore, cfg.Cache.CacheTTL(), log)

	apiClient := httpclient.NewClient(config.GetDuration(cfg.APIs.Analysis.Timeout))
	guards := guardrails.NewAgent(apiClient, cfg.APIs.Analysis.BaseURL, cfg.APIs.Analysis.APIKey, log)
	intakeSvc := intake.NewService(store, queue, guards, log)

	router := api.NewRouter(api.NewHandler(retrievalSvc, intakeSvc, log), log)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}

	zapLog.Info("API server stopped gracefully")
}
