package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/tifi/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

type Producer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// NewProducer builds a hash-balanced writer so events for one key keep their order.
func NewProducer(cfg ProducerConfig) *Producer {
	topic := cfg.Topic
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           cfg.BatchTimeout,
			WriteTimeout:           cfg.WriteTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
		log:   zap.L().With(zap.String("component", "kafka.producer"), zap.String("topic", topic)),
	}
}

func (p *Producer) WithLogger(l *zap.Logger) *Producer {
	if l == nil {
		return p
	}
	cp := *p
	cp.log = l.With(zap.String("component", "kafka.producer"), zap.String("topic", p.topic))
	return &cp
}

var (
	mPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tifi_kafka_published_total",
		Help: "Kafka publish attempts by topic and result.",
	}, []string{"topic", "result"})
	mPublishDur = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tifi_kafka_publish_duration_seconds",
		Help:    "Time spent in a synchronous kafka write.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)

// PublishProto writes m under key, carrying the caller's trace in the message headers.
func (p *Producer) PublishProto(ctx context.Context, key []byte, m proto.Message) error {
	value, err := proto.Marshal(m)
	if err != nil {
		mPublished.WithLabelValues(p.topic, "marshal_error").Inc()
		return fmt.Errorf("kafka marshal %T: %w", m, err)
	}

	ctx, span := otel.Tracer("kafka.producer").Start(ctx, "kafka.produce "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
			attribute.String("messaging.kafka.message.key", string(key)),
		),
	)
	defer span.End()

	hdrs := &headerCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, hdrs)

	start := time.Now()
	err = p.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value, Headers: hdrs.headers})
	mPublishDur.WithLabelValues(p.topic).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		mPublished.WithLabelValues(p.topic, "error").Inc()
		obs.WithTrace(ctx, p.log).Warn("kafka write failed", zap.ByteString("key", key), zap.Error(err))
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	mPublished.WithLabelValues(p.topic, "ok").Inc()
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

func (p *Producer) Topic() string { return p.topic }
