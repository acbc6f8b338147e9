package hackernews

// TopStoriesResponse is the body of /topstories.json.
type TopStoriesResponse []int64

// ItemResponse is the body of /item/{id}.json. Every field is optional.
type ItemResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}
