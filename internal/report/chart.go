package report

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"topstories/internal/domain"
)

// ErrNoScore is returned when the charted stories have no score at all, so no
// share of the total can be computed.
var ErrNoScore = errors.New("stories have a total score of zero")

// PieChart renders the score share of each story to a PNG file.
type PieChart struct {
	path   string
	title  string
	width  int
	height int
}

// NewPieChart returns a PieChart writing to path.
func NewPieChart(path, title string, width, height int) *PieChart {
	return &PieChart{
		path:   path,
		title:  title,
		width:  width,
		height: height,
	}
}

// Path returns the destination file.
func (c *PieChart) Path() string {
	return c.path
}

// Render draws one slice per record and writes the image.
func (c *PieChart) Render(records []domain.StoryRecord) error {
	slices, err := Shares(records)
	if err != nil {
		return err
	}

	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		// zero-width slices are not drawn
		if s.Score <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: float64(s.Score),
			Label: fmt.Sprintf("%s (%.1f%%)", s.Label, s.Share*100),
		})
	}

	pie := chart.PieChart{
		Title:  c.title,
		Width:  c.width,
		Height: c.height,
		Values: values,
	}

	file, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrFile, c.path, err)
	}

	if err := pie.Render(chart.PNG, file); err != nil {
		file.Close()
		return fmt.Errorf("render chart: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrFile, c.path, err)
	}

	return nil
}

// Shares computes each record's fraction of the summed score, ordered by
// score descending and then by label.
func Shares(records []domain.StoryRecord) ([]domain.Slice, error) {
	var total int
	for _, r := range records {
		total += r.Score
	}
	if total <= 0 {
		return nil, ErrNoScore
	}

	slices := make([]domain.Slice, 0, len(records))
	for _, r := range records {
		slices = append(slices, domain.Slice{
			Label: label(r),
			Score: r.Score,
			Share: float64(r.Score) / float64(total),
		})
	}

	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].Score != slices[j].Score {
			return slices[i].Score > slices[j].Score
		}
		return slices[i].Label < slices[j].Label
	})

	return slices, nil
}

func label(r domain.StoryRecord) string {
	if r.Title != "" {
		return r.Title
	}
	return fmt.Sprintf("story %d", r.ID)
}
