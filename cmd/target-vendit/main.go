package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optiply/target-vendit/internal/application/sink"
	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"github.com/optiply/target-vendit/internal/infrastructure/cache"
	"github.com/optiply/target-vendit/internal/infrastructure/config"
	"github.com/optiply/target-vendit/internal/infrastructure/logger"
	"github.com/optiply/target-vendit/internal/infrastructure/metrics"
	"github.com/optiply/target-vendit/internal/infrastructure/stream"
	"github.com/optiply/target-vendit/internal/infrastructure/telemetry"
	"github.com/optiply/target-vendit/internal/infrastructure/vendit"
	"github.com/optiply/target-vendit/internal/interfaces/http/admin"
	"github.com/optiply/target-vendit/internal/interfaces/singer"
)

var version = "dev"

const (
	inputStdin = "stdin"
	inputKafka = "kafka"
)

func main() {
	var (
		configPath  string
		input       string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the JSON config file")
	flag.StringVar(&input, "input", inputStdin, "Message source (stdin, kafka)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if err := run(configPath, input); err != nil {
		fmt.Fprintln(os.Stderr, "target-vendit:", err)
		os.Exit(1)
	}
}

func run(configPath, input string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel := cfg.TracerConfig(version)
	logs, err := telemetry.NewLoggerProvider(ctx, tel, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "logs", logs.Shutdown)
	log = logs.Bridge(log, log.Level())

	runID := uuid.NewString()
	ctx, log = logger.WithRunID(ctx, log, runID)
	log.Info("Starting target-vendit",
		zap.String("version", version),
		zap.String("input", input),
		zap.String("submission_mode", cfg.SubmissionMode),
		zap.Int("batch_size", cfg.BatchSize),
	)

	tp, err := telemetry.NewTracerProvider(ctx, tel, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "tracer", tp.Shutdown)

	store, err := cache.NewTokenStoreFactory(cfg.CacheConfig(), cfg.Redis.Enabled, cache.WithLogger(log)).CreateStore()
	if err != nil {
		return err
	}
	defer store.Close()

	auth, err := vendit.NewAuthenticator(cfg.VenditConfig(),
		vendit.WithTokenStore(store),
		vendit.WithAuthLogger(log),
	)
	if err != nil {
		return err
	}
	client := vendit.NewClient(auth, vendit.WithLogger(log))

	registry := metrics.NewRegistry()
	tracker := sink.NewStateTracker()

	opts := []sink.Option{sink.WithLogger(log), sink.WithObserver(registry)}
	recorder, closeLedger, err := openLedger(cfg, runID)
	if err != nil {
		return err
	}
	defer closeLedger(log)
	if recorder != nil {
		opts = append(opts, sink.WithRecorder(recorder))
	}

	router := sink.NewRouter(tracker, log)
	sink.RegisterStreams(router, client, sink.Settings{
		Mode:         sink.Mode(cfg.SubmissionMode),
		MaxBatchSize: cfg.BatchSize,
		Defaults:     prepurchase.Defaults{OfficeID: cfg.DefaultOfficeID},
	}, opts...)

	if cfg.Admin.Addr != "" {
		srv := admin.NewServer(cfg.Admin.Addr, tracker, registry.Handler(), log)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("start admin server: %w", err)
		}
		defer shutdown(log, "admin server", srv.Shutdown)
	}

	src, err := openSource(cfg, input)
	if err != nil {
		return err
	}
	defer src.Close()

	runner := singer.NewRunner(router, os.Stdout,
		singer.WithLogger(log),
		singer.WithSchemaValidation(cfg.ValidateRecords),
	)
	err = runner.Run(ctx, src)

	stats := runner.Stats()
	log.Info("Run finished",
		zap.Int("messages", stats.Messages),
		zap.Int("records", stats.Records),
		zap.Int("malformed", stats.Malformed),
		zap.Int("states", stats.States),
	)
	for _, name := range router.Streams() {
		sum := tracker.Summary(name)
		log.Info("Stream summary",
			zap.String("stream", name),
			zap.Int("success", sum.Success),
			zap.Int("fail", sum.Fail),
			zap.Int("items", sum.Items),
			zap.Int("dropped", sum.Dropped),
		)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openSource(cfg *config.Config, input string) (stream.Source, error) {
	switch input {
	case inputStdin:
		return stream.NewReaderSource(os.Stdin), nil
	case inputKafka:
		src, err := stream.NewKafkaSource(stream.KafkaConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			GroupID:     cfg.Kafka.GroupID,
			IdleTimeout: cfg.Kafka.IdleTimeout,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown input %q", input)
	}
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("Shutdown failed", zap.String("component", name), zap.Error(err))
	}
}
