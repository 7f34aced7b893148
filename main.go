package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kafka-tools/offset-tracker/health"
	"github.com/kafka-tools/offset-tracker/kafka"
	"github.com/kafka-tools/offset-tracker/logging"
	"github.com/kafka-tools/offset-tracker/tracker"
	"go.uber.org/zap"
)

func main() {
	startupLogger, _ := zap.NewProduction()

	cfg, err := newConfig(startupLogger)
	if err != nil {
		startupLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger := logging.NewLogger(cfg.Logger, "offset_tracker")
	defer logger.Sync()

	kgoOpts, err := kafka.NewKgoConfig(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("failed to build kafka client options", zap.Error(err))
	}

	kafkaSvc, err := kafka.NewService(cfg.Kafka, logger, nil)
	if err != nil {
		logger.Fatal("failed to create kafka service", zap.Error(err))
	}

	testCtx, cancelTest := context.WithTimeout(context.Background(), 15*time.Second)
	if err := kafkaSvc.TestConnection(testCtx); err != nil {
		logger.Fatal("failed to connect to kafka cluster", zap.Error(err))
	}
	cancelTest()

	state := tracker.NewTrackerState(logger)

	commitListener := tracker.NewCommitListener(logger, state, kgoOpts)
	metadataPoller := tracker.NewMetadataPoller(logger, state, kgoOpts, time.Duration(cfg.Tracker.DNSCacheTTLSeconds)*time.Second)
	logEndPoller := tracker.NewLogEndPoller(logger, state, kgoOpts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go commitListener.Run(ctx)
	go metadataPoller.Run(ctx)
	go logEndPoller.Run(ctx)

	if cfg.Health.Enabled {
		healthSrv := health.NewServer(logger, cfg.Health.ListenAddr)
		go func() {
			if err := healthSrv.Run(ctx); err != nil {
				logger.Error("health server stopped with error", zap.Error(err))
			}
		}()
	}

	logger.Info("offset tracker started", zap.Strings("seed_brokers", cfg.Kafka.Brokers))

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping pollers")

	commitListener.Close()
	metadataPoller.Close()
	logEndPoller.Close()

	os.Exit(0)
}
