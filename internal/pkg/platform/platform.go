package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/cache"
	"github.com/anicoll/smartbuilding/internal/pkg/config"
	"github.com/anicoll/smartbuilding/internal/pkg/database"
	"github.com/anicoll/smartbuilding/internal/pkg/mqtt"
	"github.com/anicoll/smartbuilding/internal/pkg/queue"
	"github.com/anicoll/smartbuilding/internal/pkg/search"
)

// Platform owns every process-wide client handle. Handles are opened once at startup
// and closed once at shutdown.
type Platform struct {
	DB     *database.Database
	Redis  *redis.Client
	Search *opensearch.Client
	Writer *kafka.Writer
	Mqtt   *mqtt.Client

	logger *zap.Logger
}

// Open connects to the database and builds the remaining clients. Only the database is
// required at startup; the other backends are dialled lazily and report their own failures.
func Open(ctx context.Context, cfg *config.Config) (*Platform, error) {
	logger := zap.L()

	db, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	searchClient, err := search.NewClient(cfg.Search.Addresses, cfg.Search.Username, cfg.Search.Password)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create search client: %w", err)
	}

	p := &Platform{
		DB:     db,
		Redis:  cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
		Search: searchClient,
		Writer: queue.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
		Mqtt:   mqtt.NewClient(cfg.Mqtt),
		logger: logger,
	}

	if err := p.Redis.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return p, nil
}

// Close flushes the stream writer and releases every handle.
func (p *Platform) Close() error {
	var errs []error
	if p.Mqtt != nil && p.Mqtt.IsConnected() {
		p.Mqtt.Disconnect()
	}
	if p.Writer != nil {
		if err := p.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream writer: %w", err))
		}
	}
	if p.Redis != nil {
		if err := p.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if p.DB != nil {
		if err := p.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.logger.Info("platform closed")
	return nil
}
