package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"topstories/internal/domain"
)

type StorySource interface {
	ID() string
	Name() string
	TopStories(ctx context.Context) ([]domain.StoryID, error)
	Story(ctx context.Context, id domain.StoryID) (*domain.StoryRecord, error)
}

type Table interface {
	Open() error
	WriteRecord(record *domain.StoryRecord) error
	Close() error
	Path() string
}

type ChartRenderer interface {
	Render(records []domain.StoryRecord) error
	Path() string
}

type Archive interface {
	Save(ctx context.Context, runID string, records []domain.StoryRecord) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, runID string, record *domain.StoryRecord) error
	Close() error
}

type Uploader interface {
	Upload(ctx context.Context, path string) error
}
