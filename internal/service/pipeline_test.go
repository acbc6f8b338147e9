package service

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topstories/internal/config"
	"topstories/internal/domain"
	"topstories/internal/report"
	"topstories/internal/source/hackernews"
	"topstories/internal/storage"
)

// fakeHackerNews serves topstories.json and item bodies keyed by path.
func fakeHackerNews(t *testing.T, routes map[string]string, failing ...string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	for _, path := range failing {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type pipeline struct {
	exporter  *Exporter
	csvPath   string
	chartPath string
}

func newPipeline(t *testing.T, baseURL string, onError string, archive Archive, tx TransactionManager) pipeline {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p := pipeline{
		csvPath:   filepath.Join(dir, "hacker_news_stories.csv"),
		chartPath: filepath.Join(dir, "hacker_news_pie_chart.png"),
	}

	source := hackernews.New(hackernews.Config{BaseURL: baseURL}, logger)
	table := report.NewCSVFile(p.csvPath, time.UTC)
	chart := report.NewPieChart(p.chartPath, "Distribution of Scores for Top Stories", 800, 600)

	p.exporter = NewExporter(source, table, chart, archive, tx, nil, nil, logger,
		config.FetchConfig{Workers: 10, OnError: onError}, 10)

	return p
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

var scenario = map[string]string{
	"/v0/topstories.json": `[1, 2, 3]`,
	"/v0/item/1.json":     `{"title": "A", "score": 10}`,
	"/v0/item/2.json":     `{"title": "B", "score": 20, "descendants": 5}`,
	"/v0/item/3.json":     `{}`,
}

func TestPipeline_WritesCSVAndChart(t *testing.T) {
	srv := fakeHackerNews(t, scenario)
	p := newPipeline(t, srv.URL+"/v0", config.OnErrorAbort, nil, nil)

	stats, err := p.exporter.Run(context.Background())
	require.NoError(t, err)

	rows := readRows(t, p.csvPath)
	require.Len(t, rows, 4)
	assert.Equal(t, report.Header, rows[0])
	assert.ElementsMatch(t, [][]string{
		{"A", "", "10", "", "1970-01-01 00:00:00", "0"},
		{"B", "", "20", "", "1970-01-01 00:00:00", "5"},
		{"", "", "0", "", "1970-01-01 00:00:00", "0"},
	}, rows[1:])

	assert.FileExists(t, p.chartPath)
	assert.Equal(t, 3, stats.Listed)
	assert.Equal(t, 3, stats.Written)
	assert.Equal(t, 3, stats.Charted)
}

func TestPipeline_ListingFailureLeavesNoArtifacts(t *testing.T) {
	srv := fakeHackerNews(t, nil, "/v0/topstories.json")
	p := newPipeline(t, srv.URL+"/v0", config.OnErrorAbort, nil, nil)

	_, err := p.exporter.Run(context.Background())

	assert.ErrorIs(t, err, hackernews.ErrNetwork)
	assert.NoFileExists(t, p.csvPath)
	assert.NoFileExists(t, p.chartPath)
}

func TestPipeline_MalformedListing(t *testing.T) {
	srv := fakeHackerNews(t, map[string]string{"/v0/topstories.json": `{"ids": []}`})
	p := newPipeline(t, srv.URL+"/v0", config.OnErrorAbort, nil, nil)

	_, err := p.exporter.Run(context.Background())

	assert.ErrorIs(t, err, hackernews.ErrFormat)
	assert.NoFileExists(t, p.csvPath)
}

func TestPipeline_SkipPolicyDropsFailedStory(t *testing.T) {
	routes := map[string]string{
		"/v0/topstories.json": `[1, 2, 3]`,
		"/v0/item/1.json":     `{"title": "A", "score": 10}`,
		"/v0/item/3.json":     `{"title": "C", "score": 30}`,
	}
	srv := fakeHackerNews(t, routes, "/v0/item/2.json")
	p := newPipeline(t, srv.URL+"/v0", config.OnErrorSkip, nil, nil)

	stats, err := p.exporter.Run(context.Background())
	require.NoError(t, err)

	rows := readRows(t, p.csvPath)
	assert.Len(t, rows, 3)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Charted)
}

func TestPipeline_AbortPolicyFailsRun(t *testing.T) {
	routes := map[string]string{
		"/v0/topstories.json": `[1, 2]`,
		"/v0/item/1.json":     `{"title": "A", "score": 10}`,
	}
	srv := fakeHackerNews(t, routes, "/v0/item/2.json")
	p := newPipeline(t, srv.URL+"/v0", config.OnErrorAbort, nil, nil)

	_, err := p.exporter.Run(context.Background())

	assert.ErrorIs(t, err, hackernews.ErrNetwork)
	assert.NoFileExists(t, p.chartPath)
}

func TestPipeline_ArchivesSnapshot(t *testing.T) {
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "stories.db"))
	require.NoError(t, err)
	defer db.Close()

	store := storage.NewSnapshotStore(db)
	srv := fakeHackerNews(t, scenario)
	p := newPipeline(t, srv.URL+"/v0", config.OnErrorAbort, store, storage.NewTransactionManager(db))

	stats, err := p.exporter.Run(context.Background())
	require.NoError(t, err)

	saved, err := store.List(context.Background(), stats.RunID)
	require.NoError(t, err)
	assert.Equal(t, []domain.StoryRecord{
		{ID: 1, Title: "A", Score: 10},
		{ID: 2, Title: "B", Score: 20, Comments: 5},
		{ID: 3},
	}, saved)
}
