package queue

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/metrics"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewWriter builds an asynchronous writer for the topic. Delivery is reported through
// the completion callback and never awaited by callers.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion:   deliveryReport(zap.L()),
	}
}

func deliveryReport(logger *zap.Logger) func(messages []kafka.Message, err error) {
	return func(messages []kafka.Message, err error) {
		metrics.RecordDelivery(len(messages), err)
		if err != nil {
			logger.Error("stream delivery failed", zap.Error(err), zap.Int("messages", len(messages)))
			return
		}
		for _, m := range messages {
			logger.Debug("stream delivery succeeded",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}
	}
}

// Producer forwards raw payloads to the stream.
type Producer struct {
	writer messageWriter
}

func NewProducer(writer messageWriter) *Producer {
	return &Producer{writer: writer}
}

// Produce enqueues the payload unmodified.
func (p *Producer) Produce(ctx context.Context, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{Value: payload})
}
