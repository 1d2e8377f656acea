package youtube

import "strings"

// SearchRequest is the youtubei search request body.
type SearchRequest struct {
	Context RequestContext `json:"context"`
	Query   string         `json:"query"`
	Params  string         `json:"params,omitempty"`
}

type RequestContext struct {
	Client ClientInfo `json:"client"`
}

type ClientInfo struct {
	HL            string `json:"hl"`
	GL            string `json:"gl"`
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
}

// SearchResponse covers the path down to the video renderers of the first
// results page; everything else in the payload is ignored.
type SearchResponse struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []Section `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

type Section struct {
	ItemSectionRenderer *struct {
		Contents []Item `json:"contents"`
	} `json:"itemSectionRenderer"`
}

type Item struct {
	VideoRenderer *VideoRenderer `json:"videoRenderer"`
}

type VideoRenderer struct {
	VideoID           string `json:"videoId"`
	Title             Text   `json:"title"`
	ViewCountText     Text   `json:"viewCountText"`
	ShortViewCount    Text   `json:"shortViewCountText"`
	PublishedTimeText Text   `json:"publishedTimeText"`
}

// Text is YouTube's formatted string: either simpleText or a list of runs.
type Text struct {
	SimpleText string `json:"simpleText"`
	Runs       []Run  `json:"runs"`
}

type Run struct {
	Text string `json:"text"`
}

func (t Text) String() string {
	if t.SimpleText != "" {
		return strings.TrimSpace(t.SimpleText)
	}
	var b strings.Builder
	for _, r := range t.Runs {
		b.WriteString(r.Text)
	}
	return strings.TrimSpace(b.String())
}
