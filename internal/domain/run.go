package domain

import "time"

// RunStats holds statistics about a single pipeline run.
type RunStats struct {
	RunID     string
	Listed    int
	Written   int
	Failed    int
	Published int
	Charted   int
	Duration  time.Duration
}
