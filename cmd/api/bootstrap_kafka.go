package main

import (
	"context"

	config "github.com/NordCoder/tifi/internal/config/api"
	"github.com/NordCoder/tifi/internal/obs/retry"
	"github.com/NordCoder/tifi/internal/repository/kafka"
	"go.uber.org/zap"
)

// initEvents returns nil, nil when the fan-out is disabled.
func initEvents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*kafka.NotificationEvents, func() error, error) {
	if !cfg.Kafka.Enable {
		return nil, func() error { return nil }, nil
	}

	err := retry.Do(ctx, func() error {
		return kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{Name: cfg.Kafka.Topic}, logger)
	}, retry.DefaultStartupPolicy("kafka", logger))
	if err != nil {
		return nil, nil, err
	}

	p := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}).WithLogger(logger)
	logger.Info("kafka events enabled", zap.String("topic", p.Topic()))
	return kafka.NewNotificationEvents(p), p.Close, nil
}
