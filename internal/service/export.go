package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"topstories/internal/config"
	"topstories/internal/domain"
	"topstories/internal/report"
	"topstories/internal/workerpool"
)

// Exporter runs one pass of the pipeline: list the top stories, write all of
// them to the table, then chart the first few. Archive, publisher and uploader
// are optional and may be nil.
type Exporter struct {
	source    StorySource
	table     Table
	chart     ChartRenderer
	archive   Archive
	txManager TransactionManager
	publisher Publisher
	uploader  Uploader
	logger    *slog.Logger
	config    config.FetchConfig
	chartTop  int
}

func NewExporter(
	source StorySource,
	table Table,
	chart ChartRenderer,
	archive Archive,
	txManager TransactionManager,
	publisher Publisher,
	uploader Uploader,
	logger *slog.Logger,
	cfg config.FetchConfig,
	chartTop int,
) *Exporter {
	return &Exporter{
		source:    source,
		table:     table,
		chart:     chart,
		archive:   archive,
		txManager: txManager,
		publisher: publisher,
		uploader:  uploader,
		logger:    logger.With("source", source.ID()),
		config:    cfg,
		chartTop:  chartTop,
	}
}

func (e *Exporter) Run(ctx context.Context) (*domain.RunStats, error) {
	startTime := time.Now()
	stats := &domain.RunStats{RunID: uuid.NewString()}
	logger := e.logger.With("run_id", stats.RunID)

	logger.Info("starting export",
		"source_name", e.source.Name(),
		"workers", e.config.Workers,
		"on_error", e.config.OnError,
	)

	ids, err := e.source.TopStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list top stories: %w", err)
	}
	stats.Listed = len(ids)

	logger.Info("listed top stories", "count", len(ids))

	records, err := e.writeTable(ctx, logger, stats, ids)
	if err != nil {
		return stats, err
	}

	if err := e.saveSnapshot(ctx, stats.RunID, records); err != nil {
		return stats, fmt.Errorf("save snapshot: %w", err)
	}

	artifacts := []string{e.table.Path()}

	charted, err := e.renderChart(ctx, logger, ids)
	switch {
	case errors.Is(err, report.ErrNoScore):
		logger.Warn("chart skipped", "error", err)
	case err != nil:
		return stats, err
	default:
		stats.Charted = charted
		artifacts = append(artifacts, e.chart.Path())
	}

	if e.uploader != nil {
		for _, path := range artifacts {
			if err := e.uploader.Upload(ctx, path); err != nil {
				return stats, fmt.Errorf("upload %s: %w", path, err)
			}
		}
	}

	stats.Duration = time.Since(startTime)

	logger.Info("export completed",
		"listed", stats.Listed,
		"written", stats.Written,
		"failed", stats.Failed,
		"published", stats.Published,
		"charted", stats.Charted,
		"duration", stats.Duration,
	)

	return stats, nil
}

// writeTable streams every story into the table as it arrives. The returned
// records are only collected when an archive is configured.
func (e *Exporter) writeTable(
	ctx context.Context,
	logger *slog.Logger,
	stats *domain.RunStats,
	ids []domain.StoryID,
) ([]domain.StoryRecord, error) {
	if err := e.table.Open(); err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}

	var archived []domain.StoryRecord

	failed, err := e.fetch(ctx, logger, ids, func(record *domain.StoryRecord) error {
		if err := e.table.WriteRecord(record); err != nil {
			return err
		}
		stats.Written++

		if e.publisher != nil {
			if err := e.publisher.Publish(ctx, stats.RunID, record); err != nil {
				logger.Error("failed to publish story", "id", record.ID, "error", err)
			} else {
				stats.Published++
			}
		}

		if e.archive != nil {
			archived = append(archived, *record)
		}
		return nil
	})
	stats.Failed = failed

	if closeErr := e.table.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close table: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("table written", "path", e.table.Path(), "rows", stats.Written, "failed", failed)

	return archived, nil
}

func (e *Exporter) saveSnapshot(ctx context.Context, runID string, records []domain.StoryRecord) error {
	if e.archive == nil {
		return nil
	}

	return e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return e.archive.Save(txCtx, runID, records)
	})
}

// renderChart fetches the leading stories again through a fresh pool and
// renders them once all have arrived.
func (e *Exporter) renderChart(ctx context.Context, logger *slog.Logger, ids []domain.StoryID) (int, error) {
	top := ids[:min(len(ids), e.chartTop)]

	records := make([]domain.StoryRecord, 0, len(top))
	if _, err := e.fetch(ctx, logger, top, func(record *domain.StoryRecord) error {
		records = append(records, *record)
		return nil
	}); err != nil {
		return 0, err
	}

	if err := e.chart.Render(records); err != nil {
		return 0, fmt.Errorf("render chart: %w", err)
	}

	logger.Info("chart rendered", "path", e.chart.Path(), "stories", len(records))

	return len(records), nil
}

// fetch hands every fetched record to sink on the calling goroutine. A failed
// story aborts the batch unless the skip policy is configured, in which case
// it is logged and counted.
func (e *Exporter) fetch(
	ctx context.Context,
	logger *slog.Logger,
	ids []domain.StoryID,
	sink func(record *domain.StoryRecord) error,
) (int, error) {
	failed := 0

	err := workerpool.Stream(ctx, e.config.Workers, ids, e.source.Story,
		func(res workerpool.Result[domain.StoryID, *domain.StoryRecord]) error {
			if res.Err != nil {
				if e.config.OnError != config.OnErrorSkip {
					return fmt.Errorf("fetch story %d: %w", res.Input, res.Err)
				}
				failed++
				logger.Warn("skipping story", "id", res.Input, "error", res.Err)
				return nil
			}
			return sink(res.Value)
		})

	return failed, err
}
