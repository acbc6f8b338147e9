package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"topstories/internal/domain"
)

// ErrFile marks failures to create, write or close an output artifact.
var ErrFile = errors.New("file error")

// Header is the first row of every CSV export.
var Header = []string{"title", "url", "score", "author", "time", "num_comments"}

// CSVFile writes story rows to a CSV file. Times are rendered in the
// configured location. A CSVFile may be reopened after Close.
type CSVFile struct {
	path string
	loc  *time.Location
	file *os.File
	csv  *csv.Writer
	rows int
}

// NewCSVFile returns a CSVFile writing to path.
func NewCSVFile(path string, loc *time.Location) *CSVFile {
	return &CSVFile{path: path, loc: loc}
}

// Path returns the destination file.
func (f *CSVFile) Path() string {
	return f.path
}

// Open truncates the destination and writes the header row.
func (f *CSVFile) Open() error {
	if f.file != nil {
		return fmt.Errorf("%w: %s is already open", ErrFile, f.path)
	}

	file, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrFile, f.path, err)
	}

	f.file = file
	f.csv = csv.NewWriter(file)
	f.rows = 0

	if err := f.csv.Write(Header); err != nil {
		f.reset()
		return fmt.Errorf("%w: write header: %w", ErrFile, err)
	}

	return nil
}

// WriteRecord appends one row.
func (f *CSVFile) WriteRecord(record *domain.StoryRecord) error {
	if f.file == nil {
		return fmt.Errorf("%w: %s is not open", ErrFile, f.path)
	}
	if err := f.csv.Write(Row(record, f.loc)); err != nil {
		return fmt.Errorf("%w: write story %d: %w", ErrFile, record.ID, err)
	}
	f.rows++
	return nil
}

// Rows returns the number of data rows written since Open.
func (f *CSVFile) Rows() int {
	return f.rows
}

// Close flushes buffered rows and closes the file.
func (f *CSVFile) Close() error {
	if f.file == nil {
		return nil
	}

	f.csv.Flush()
	flushErr := f.csv.Error()
	closeErr := f.reset()

	if flushErr != nil {
		return fmt.Errorf("%w: flush %s: %w", ErrFile, f.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close %s: %w", ErrFile, f.path, closeErr)
	}
	return nil
}

func (f *CSVFile) reset() error {
	err := f.file.Close()
	f.file = nil
	f.csv = nil
	return err
}

// Row renders record in Header column order.
func Row(record *domain.StoryRecord, loc *time.Location) []string {
	return []string{
		record.Title,
		record.URL,
		strconv.Itoa(record.Score),
		record.Author,
		record.FormatTime(loc),
		strconv.Itoa(record.Comments),
	}
}
