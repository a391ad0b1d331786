package queue

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/metrics"
)

// HandlerFunc processes the value of one stream message.
type HandlerFunc func(ctx context.Context, payload []byte) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type ConsumerConfig struct {
	Brokers        []string
	Topic          string
	GroupID        string
	PollTimeout    time.Duration
	CommitInterval time.Duration
}

// Consumer reads the stream as part of a consumer group and hands every message to a
// handler. Offsets are committed periodically whatever the handler returns, so a message
// is processed at most once per group.
type Consumer struct {
	reader      messageReader
	handler     HandlerFunc
	pollTimeout time.Duration
	newBackOff  func() backoff.BackOff
	logger      *zap.Logger
}

func NewConsumer(cfg ConsumerConfig, handler HandlerFunc) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.Topic,
		// only applies when the group has no committed offset yet
		StartOffset:    kafka.LastOffset,
		CommitInterval: cfg.CommitInterval,
		MinBytes:       1,
		MaxBytes:       10e6,
	})
	return newConsumer(reader, handler, cfg.PollTimeout)
}

func newConsumer(reader messageReader, handler HandlerFunc, pollTimeout time.Duration) *Consumer {
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}
	return &Consumer{
		reader:      reader,
		handler:     handler,
		pollTimeout: pollTimeout,
		newBackOff:  fetchBackOff,
		logger:      zap.L(),
	}
}

func fetchBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run polls until ctx is done and closes the reader on the way out.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("failed to close stream reader", zap.Error(err))
		}
	}()
	c.logger.Info("stream consumer started", zap.Duration("poll_timeout", c.pollTimeout))
	defer c.logger.Info("stream consumer stopped")

	bo := c.newBackOff()
	for {
		if ctx.Err() != nil {
			return nil
		}

		pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
		msg, err := c.reader.ReadMessage(pollCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			wait := bo.NextBackOff()
			c.logger.Error("failed to read from stream", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordConsumed("panic")
			c.logger.Error("stream handler panicked",
				zap.Any("panic", r),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
		}
	}()

	if err := c.handler(ctx, msg.Value); err != nil {
		metrics.RecordConsumed("error")
		c.logger.Error("failed to handle stream message",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return
	}
	metrics.RecordConsumed("ok")
}
