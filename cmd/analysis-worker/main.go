// cmd/analysis-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"feedback-pipeline/internal/analysis"
	awsclients "feedback-pipeline/internal/common/aws"
	"feedback-pipeline/internal/common/config"
	httpclient "feedback-pipeline/internal/common/http"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/common/observability"
	"feedback-pipeline/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting analysis-worker...")

	obs := observability.New("analysis-worker")
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *storage.DynamoStore
	err = retryWithBackoff(func() error {
		var err error
		store, err = storage.NewDynamoStore(ctx, cfg.AWS.Region, cfg.AWS.DynamoDB.Table, log)
		return err
	}, 10, 2*time.Second, zapLog, "DynamoDB client initialization")
	if err != nil {
		zapLog.Fatal("dynamodb client failed after retries", zap.Error(err))
	}

	var queue *awsclients.SQSClient
	err = retryWithBackoff(func() error {
		var err error
		queue, err = awsclients.NewSQSClient(ctx, cfg.AWS.Region, cfg.AWS.SQS.QueueURL)
		return err
	}, 10, 2*time.Second, zapLog, "SQS client initialization")
	if err != nil {
		zapLog.Fatal("sqs client failed after retries", zap.Error(err))
	}

	var notifier analysis.Notifier
	if cfg.AWS.SNS.Enabled {
		snsClient, err := awsclients.NewSNSClient(ctx, cfg.AWS.Region, cfg.AWS.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		notifier = snsClient
	}

	apiClient := httpclient.NewClient(config.GetDuration(cfg.APIs.Analysis.Timeout))
	tools := analysis.NewClient(apiClient, cfg.APIs.Analysis.BaseURL, cfg.APIs.Analysis.APIKey, cfg.APIs.Analysis.MaxRetries, log)

	worker := analysis.NewWorker(queue, store, tools, notifier, obs, log, analysis.WorkerOptions{
		MaxMessages: int32(cfg.AWS.SQS.MaxMessages),
		WaitSeconds: int32(cfg.AWS.SQS.WaitTimeSeconds),
	})

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8081")
		if err := http.ListenAndServe(":8081", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			zapLog.Error("worker stopped with error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping worker...")
	cancel()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		zapLog.Warn("worker did not stop within the shutdown window")
	}

	zapLog.Info("Analysis worker stopped gracefully")
}
