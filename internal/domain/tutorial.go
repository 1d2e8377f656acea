package domain

// PortableImage is what the description backend receives: either a data URI
// embedding the image bytes or, when fetching failed, the original URL.
type PortableImage struct {
	URI      string
	Embedded bool
}

// SearchHit is one raw record from the video backend, before scoring.
type SearchHit struct {
	Title     string
	URL       string
	ViewsText string
	AgeText   string
}

type VideoCandidate struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	ProductName    string  `json:"product_name"`
	RawViewCount   int64   `json:"raw_view_count"`
	FormattedViews string  `json:"formatted_views"`
	AgeText        string  `json:"age_text"`
	Score          float64 `json:"score"`
	Language       string  `json:"language,omitempty"`
}

// FinderResult is the payload written to stdout.
type FinderResult struct {
	ProductKeyword string           `json:"product_keyword"`
	Tutorials      []VideoCandidate `json:"tutorials"`
	Reason         string           `json:"reason,omitempty"`
}

// Report describes one finished run for downstream consumers.
type Report struct {
	RunID    string
	ImageURL string
	Outcome  Outcome
	Result   FinderResult
}
