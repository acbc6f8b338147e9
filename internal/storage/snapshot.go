package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"topstories/internal/domain"
)

const snapshotBatchSize = 200

var snapshotColumns = []string{
	"run_id", "story_id", "title", "url", "score", "author", "posted_at", "comments", "fetched_at",
}

// SnapshotStore archives the stories fetched during a run.
type SnapshotStore struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	var format sq.PlaceholderFormat = sq.Question
	if db.DriverName() == DriverPostgres {
		format = sq.Dollar
	}

	return &SnapshotStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
		now:     time.Now,
	}
}

// Save inserts records under runID. Stories already stored for the run are
// left untouched. Runs inside the transaction carried by ctx, if any.
func (s *SnapshotStore) Save(ctx context.Context, runID string, records []domain.StoryRecord) error {
	fetchedAt := s.now().Unix()
	exec := GetExecutor(ctx, s.db)

	for start := 0; start < len(records); start += snapshotBatchSize {
		end := min(start+snapshotBatchSize, len(records))

		insert := s.builder.
			Insert("story_snapshots").
			Columns(snapshotColumns...).
			Suffix("ON CONFLICT (run_id, story_id) DO NOTHING")

		for _, r := range records[start:end] {
			insert = insert.Values(runID, int64(r.ID), r.Title, r.URL, r.Score, r.Author, r.Time, r.Comments, fetchedAt)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("build snapshot insert: %w", err)
		}

		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert snapshots: %w", err)
		}
	}

	return nil
}

// List returns the records archived for runID ordered by story ID.
func (s *SnapshotStore) List(ctx context.Context, runID string) ([]domain.StoryRecord, error) {
	query, args, err := s.builder.
		Select("story_id", "title", "url", "score", "author", "posted_at", "comments").
		From("story_snapshots").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("story_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot select: %w", err)
	}

	var records []domain.StoryRecord
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &records, query, args...); err != nil {
		return nil, fmt.Errorf("select snapshots: %w", err)
	}

	return records, nil
}

// CountRuns returns the number of distinct runs in the archive.
func (s *SnapshotStore) CountRuns(ctx context.Context) (int, error) {
	query, args, err := s.builder.
		Select("COUNT(DISTINCT run_id)").
		From("story_snapshots").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build run count: %w", err)
	}

	var count int
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count, query, args...); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}

	return count, nil
}
