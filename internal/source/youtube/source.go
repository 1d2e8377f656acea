package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tutorial_finder/internal/domain"
)

const (
	SourceID = "youtube"

	watchURL      = "https://www.youtube.com/watch?v="
	searchAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	clientName    = "WEB"
	clientVersion = "2.20240726.00.00"
	// videosOnly restricts results to videos (no channels, playlists or shelves).
	videosOnly = "EgIQAQ=="
)

type Config struct {
	BaseURL string
	APIKey  string
	Region  string
	Timeout time.Duration
}

// Source queries the youtubei search endpoint.
type Source struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	region     string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		region:  cfg.Region,
		logger:  logger.With("source", SourceID),
	}
}

// Search returns hits from the first results page in backend order, stopping
// once limit of them have both a title and a link. Incomplete records seen
// before that point are kept so the caller can account for them. Labels are
// requested in English so that age text stays parseable.
func (s *Source) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	body := SearchRequest{
		Context: RequestContext{
			Client: ClientInfo{
				HL:            "en",
				GL:            s.region,
				ClientName:    clientName,
				ClientVersion: clientVersion,
			},
		},
		Query:  query,
		Params: videosOnly,
	}

	resp, err := s.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	hits := s.transform(resp, limit)

	s.logger.Debug("search completed",
		"query", query,
		"hits", len(hits),
	)

	return hits, nil
}

func (s *Source) doRequest(ctx context.Context, body SearchRequest) (*SearchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := endpoint.Query()
	q.Set("prettyPrint", "false")
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", searchAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("unexpected status: %d (%s)", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &searchResp, nil
}

func (s *Source) transform(resp *SearchResponse, limit int) []domain.SearchHit {
	var hits []domain.SearchHit
	complete := 0

	sections := resp.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents
	for _, section := range sections {
		if section.ItemSectionRenderer == nil {
			continue
		}
		for _, item := range section.ItemSectionRenderer.Contents {
			v := item.VideoRenderer
			if v == nil {
				continue
			}

			hit := domain.SearchHit{
				Title:     v.Title.String(),
				ViewsText: v.ViewCountText.String(),
				AgeText:   v.PublishedTimeText.String(),
			}
			if hit.ViewsText == "" {
				hit.ViewsText = v.ShortViewCount.String()
			}
			if v.VideoID != "" {
				hit.URL = watchURL + v.VideoID
			}

			hits = append(hits, hit)
			if hit.Title != "" && hit.URL != "" {
				complete++
			}
			if limit > 0 && complete >= limit {
				return hits
			}
		}
	}

	return hits
}
