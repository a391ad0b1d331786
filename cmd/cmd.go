package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/smartbuilding/internal/pkg/alert"
	"github.com/anicoll/smartbuilding/internal/pkg/cache"
	"github.com/anicoll/smartbuilding/internal/pkg/config"
	"github.com/anicoll/smartbuilding/internal/pkg/database/migration"
	"github.com/anicoll/smartbuilding/internal/pkg/hvac"
	"github.com/anicoll/smartbuilding/internal/pkg/identity"
	"github.com/anicoll/smartbuilding/internal/pkg/metrics"
	"github.com/anicoll/smartbuilding/internal/pkg/mqtt"
	"github.com/anicoll/smartbuilding/internal/pkg/platform"
	"github.com/anicoll/smartbuilding/internal/pkg/processor"
	"github.com/anicoll/smartbuilding/internal/pkg/publisher"
	"github.com/anicoll/smartbuilding/internal/pkg/queue"
	"github.com/anicoll/smartbuilding/internal/pkg/search"
	"github.com/anicoll/smartbuilding/internal/pkg/server"
	"github.com/anicoll/smartbuilding/internal/pkg/streams"
)

var errCron = errors.New("cron error")

// PipelineCommand runs the ingestion pipeline and the ops server until interrupted.
func PipelineCommand(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return run(ctx.Context, cfg, ctx.Bool("start-streams"))
}

// MigrateCommand applies the database migrations and exits.
func MigrateCommand(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := migration.Migrate(cfg.Database.URL, cfg.Database.MigrationsFolder); err != nil {
		return err
	}
	logger.Info("migrations applied", zap.String("folder", cfg.Database.MigrationsFolder))
	return nil
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("migrations-folder") {
		cfg.Database.MigrationsFolder = ctx.String("migrations-folder")
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func run(ctx context.Context, cfg *config.Config, startStreams bool) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := platform.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("failed to close platform", zap.Error(err))
		}
	}()

	latest := cache.New(p.Redis, cfg.Pipeline.LatestTTL)
	views := publisher.NewRegistry()
	if err := views.Register("cache", latest); err != nil {
		return err
	}
	index := search.New(p.Search, cfg.Search.Index)
	if err := views.Register("search", index); err != nil {
		return err
	}
	proc := processor.New(identity.New(p.DB), p.DB, views, alert.NewService(p.DB), hvac.NewController(p.DB))

	bridge := mqtt.NewBridge(p.Mqtt, queue.NewProducer(p.Writer), cfg.Mqtt.Topic, cfg.Mqtt.QoS)
	consumer := queue.NewConsumer(queue.ConsumerConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          cfg.Kafka.Topic,
		GroupID:        cfg.Kafka.GroupID,
		PollTimeout:    cfg.Kafka.PollTimeout,
		CommitInterval: cfg.Kafka.CommitInterval,
	}, proc.Handle)

	eg, ctx := errgroup.WithContext(ctx)

	supervisor := streams.New(ctx,
		streams.Worker{Name: "bridge", Run: bridge.Run},
		streams.Worker{Name: "consumer", Run: consumer.Run},
	)
	if startStreams {
		supervisor.EnsureStarted()
	}

	eg.Go(func() error {
		return cronCleanup(ctx, p.DB, cfg.Retention)
	})

	ops := server.New(supervisor, latest, p.DB).
		AddCheck("cache", latest).
		AddCheck("search", index)
	srv := &http.Server{
		Handler:      ops.Handler(),
		Addr:         cfg.Server.Addr,
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
	}
	eg.Go(func() error {
		logger.Info("ops server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		supervisor.Wait()
		return err
	})

	return eg.Wait()
}

type cleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// cronCleanup prunes old readings once at startup and then on the retention schedule
// until ctx is done.
func cronCleanup(ctx context.Context, db cleaner, cfg config.RetentionConfig) error {
	if err := cleanup(ctx, db, cfg.Days); err != nil {
		return err
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := cleanup(ctx, db, cfg.Days); err != nil {
			zap.L().Error("error cleaning up database", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("%w: %w", errCron, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func cleanup(ctx context.Context, db cleaner, days int) error {
	deleted, err := db.Cleanup(ctx, days)
	if err != nil {
		return err
	}
	metrics.RecordRetention(deleted)
	zap.L().Info("pruned old readings", zap.Int64("deleted", deleted), zap.Int("retention_days", days))
	return nil
}
