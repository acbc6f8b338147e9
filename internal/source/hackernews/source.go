package hackernews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"topstories/internal/domain"
)

const (
	SourceID   = "hackernews"
	SourceName = "Hacker News"
)

var (
	// ErrNetwork marks transport failures and non-success statuses.
	ErrNetwork = errors.New("network error")
	// ErrFormat marks response bodies that do not have the expected JSON shape.
	ErrFormat = errors.New("format error")
)

// Config holds Hacker News source configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration // zero disables the client timeout
	UserAgent string
}

// Source reads top stories and items from the Hacker News Firebase API.
type Source struct {
	client *resty.Client
	logger *slog.Logger
}

// New creates a new Hacker News source. No retries are configured.
func New(cfg Config, logger *slog.Logger) *Source {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Source{
		client: client,
		logger: logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// TopStories returns the current top story IDs in the order the API lists them.
func (s *Source) TopStories(ctx context.Context) ([]domain.StoryID, error) {
	body, err := s.get(ctx, "/topstories.json")
	if err != nil {
		return nil, err
	}

	var resp TopStoriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode top stories: %w", ErrFormat, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: decode top stories: null body", ErrFormat)
	}

	ids := make([]domain.StoryID, len(resp))
	for i, id := range resp {
		ids[i] = domain.StoryID(id)
	}

	s.logger.Debug("listed top stories", "count", len(ids))

	return ids, nil
}

// Story fetches a single item. A null body, which the API returns for unknown
// items, yields a record holding only the requested ID.
func (s *Source) Story(ctx context.Context, id domain.StoryID) (*domain.StoryRecord, error) {
	body, err := s.get(ctx, fmt.Sprintf("/item/%d.json", id))
	if err != nil {
		return nil, err
	}

	var item ItemResponse
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("%w: decode item %d: %w", ErrFormat, id, err)
	}

	s.logger.Debug("fetched story", "id", id, "score", item.Score)

	return transform(id, item), nil
}

func (s *Source) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrNetwork, path, err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: get %s: unexpected status: %d", ErrNetwork, path, resp.StatusCode())
	}

	return resp.Body(), nil
}

func transform(id domain.StoryID, item ItemResponse) *domain.StoryRecord {
	return &domain.StoryRecord{
		ID:       id,
		Title:    item.Title,
		URL:      item.URL,
		Score:    item.Score,
		Author:   item.By,
		Time:     item.Time,
		Comments: item.Descendants,
	}
}
