package domain

import "time"

// TimeLayout renders story timestamps as YYYY-MM-DD HH:MM:SS.
const TimeLayout = "2006-01-02 15:04:05"

// StoryID identifies a story in the Hacker News API.
type StoryID int64

// StoryRecord is the metadata of a single story. Fields the API omits keep
// their zero value.
type StoryRecord struct {
	ID       StoryID `json:"id" db:"story_id"`
	Title    string  `json:"title" db:"title"`
	URL      string  `json:"url" db:"url"`
	Score    int     `json:"score" db:"score"`
	Author   string  `json:"author" db:"author"`
	Time     int64   `json:"time" db:"posted_at"` // epoch seconds
	Comments int     `json:"num_comments" db:"comments"`
}

// PostedAt returns the creation time of the story in loc.
func (r StoryRecord) PostedAt(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(r.Time, 0).In(loc)
}

// FormatTime renders the creation time with TimeLayout.
func (r StoryRecord) FormatTime(loc *time.Location) string {
	return r.PostedAt(loc).Format(TimeLayout)
}

// Slice is one wedge of the score chart.
type Slice struct {
	Label string
	Score int
	Share float64
}
