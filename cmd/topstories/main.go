package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"topstories/internal/config"
	"topstories/internal/publisher"
	"topstories/internal/report"
	"topstories/internal/scheduler"
	"topstories/internal/service"
	"topstories/internal/source/hackernews"
	"topstories/internal/storage"
	"topstories/internal/upload"
)

type options struct {
	Config   string `short:"c" long:"config" env:"TOPSTORIES_CONFIG" default:"config.yaml" description:"Path to config file"`
	LogLevel string `long:"log-level" env:"LOG_LEVEL" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Override the configured log level"`
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Output.Location()
	if err != nil {
		return err
	}

	var (
		archive   service.Archive
		txManager service.TransactionManager
		pub       service.Publisher
		uploader  service.Uploader
	)

	if cfg.Archive.Enabled() {
		db, err := storage.Open(cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		archive = storage.NewSnapshotStore(db)
		txManager = storage.NewTransactionManager(db)
		logger.Info("connected to archive", "driver", cfg.Archive.Driver)
	}

	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()

		pub = rabbitMQ
	}

	if cfg.Upload.Enabled() {
		s3Uploader, err := upload.NewS3Uploader(ctx, upload.Config{
			Bucket:    cfg.Upload.Bucket,
			Prefix:    cfg.Upload.Prefix,
			Region:    cfg.Upload.Region,
			Endpoint:  cfg.Upload.Endpoint,
			AccessKey: cfg.Upload.AccessKey,
			SecretKey: cfg.Upload.SecretKey,
		}, logger)
		if err != nil {
			return err
		}

		uploader = s3Uploader
	}

	hnSource := hackernews.New(hackernews.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	}, logger)

	exporter := service.NewExporter(
		hnSource,
		report.NewCSVFile(cfg.Output.CSVPath, loc),
		report.NewPieChart(cfg.Output.ChartPath, cfg.Chart.Title, cfg.Chart.Width, cfg.Chart.Height),
		archive,
		txManager,
		pub,
		uploader,
		logger,
		cfg.Fetch,
		cfg.Chart.Top,
	)

	logger.Info("starting top stories export",
		"source", hnSource.Name(),
		"interval", cfg.Interval,
		"workers", cfg.Fetch.Workers,
	)

	return scheduler.NewScheduler(exporter, cfg.Interval, logger).Start(ctx)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
