package kafka_middleware

import (
	"context"
	"medisched/pkg/kafka"
	"medisched/pkg/metrics"
	"time"
)

func MetricsProducer(m *metrics.KafkaMetrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.ObservePublish(msg.Topic, err, time.Since(start))
		return err
	}
}

func MetricsConsumer(m *metrics.KafkaMetrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.ObserveConsume(msg.Topic, err, time.Since(start))
		return err
	}
}
