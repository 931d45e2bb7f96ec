package main

import (
	"context"
	"flag"
	"os"
	"time"

	config "github.com/NordCoder/tifi/internal/config/api"
	"github.com/NordCoder/tifi/internal/obs"
	"github.com/NordCoder/tifi/internal/obs/retry"
	"github.com/NordCoder/tifi/internal/repository/kafka"
	"go.uber.org/zap"
)

// kafka-init creates the ledger event topic ahead of the api, e.g. as a compose init job.
func main() {
	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the yaml config")
	partitions := flag.Int("partitions", 3, "partitions for a new topic")
	rf := flag.Int("rf", 1, "replication factor for a new topic")
	wait := flag.Duration("wait", 30*time.Second, "how long a created topic may take to show up")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	logger, err := obs.NewLogger(cfg.LoggerConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Fatal("kafka.brokers is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	spec := kafka.TopicSpec{
		Name:              cfg.Kafka.Topic,
		NumPartitions:     *partitions,
		ReplicationFactor: *rf,
		MaxWait:           *wait,
	}
	err = retry.Do(ctx, func() error {
		return kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, spec, logger)
	}, retry.DefaultStartupPolicy("kafka-init", logger))
	if err != nil {
		logger.Fatal("ensure topic", zap.String("topic", spec.Name), zap.Error(err))
	}
	logger.Info("kafka-init ok", zap.String("topic", spec.Name))
}
