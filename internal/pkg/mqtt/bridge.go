package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/metrics"
)

type producer interface {
	Produce(ctx context.Context, payload []byte) error
}

type subscriber interface {
	Connect() error
	Subscribe(topic string, qos byte, handler paho_mqtt.MessageHandler) error
	Disconnect()
}

// Bridge forwards every message received on the edge topic to the stream, byte for byte.
type Bridge struct {
	client     subscriber
	producer   producer
	topic      string
	qos        byte
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

func NewBridge(client subscriber, producer producer, topic string, qos byte) *Bridge {
	return &Bridge{
		client:     client,
		producer:   producer,
		topic:      topic,
		qos:        qos,
		newBackOff: connectBackOff,
		logger:     zap.L(),
	}
}

func connectBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run connects to the broker, retrying until it succeeds or ctx is done, and forwards
// messages until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.client.Subscribe(b.topic, b.qos, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		b.forward(ctx, msg)
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topic, err)
	}

	bo := backoff.WithContext(b.newBackOff(), ctx)
	err := backoff.RetryNotify(b.client.Connect, bo, func(err error, wait time.Duration) {
		b.logger.Warn("mqtt connect failed", zap.Error(err), zap.Duration("retry_in", wait))
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect: %w", err)
	}
	b.logger.Info("ingress bridge started", zap.String("topic", b.topic))

	<-ctx.Done()
	b.client.Disconnect()
	b.logger.Info("ingress bridge stopped")
	return nil
}

func (b *Bridge) forward(ctx context.Context, msg paho_mqtt.Message) {
	if err := b.producer.Produce(ctx, msg.Payload()); err != nil {
		metrics.RecordBridgeMessage(false)
		b.logger.Error("failed to forward message", zap.Error(err), zap.String("topic", msg.Topic()))
		return
	}
	metrics.RecordBridgeMessage(true)
	b.logger.Debug("forwarded message", zap.String("topic", msg.Topic()), zap.Int("bytes", len(msg.Payload())))
}
