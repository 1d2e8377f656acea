package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"tutorial_finder/internal/config"
	"tutorial_finder/internal/domain"
	"tutorial_finder/internal/metrics"
	"tutorial_finder/internal/ranking"
)

// detectLanguage returns the ISO 639-3 code of a title, or "" when the guess
// is unreliable.
var detectLanguage = func(title string) string {
	info := whatlanggo.Detect(title)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}

// Finder runs the image → query → ranked tutorials pipeline. Stages run one
// after another; nothing is retried.
type Finder struct {
	preparer  ImagePreparer
	describer Describer
	searcher  VideoSearcher
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	config    config.SearchConfig
}

func NewFinder(
	preparer ImagePreparer,
	describer Describer,
	searcher VideoSearcher,
	publisher Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg config.SearchConfig,
) *Finder {
	return &Finder{
		preparer:  preparer,
		describer: describer,
		searcher:  searcher,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With("component", "finder"),
		config:    cfg,
	}
}

// Find returns the ranked tutorials for the object in imageURL. A rejected or
// unreadable image yields an empty tutorial list, not an error. Errors are
// returned only for a missing image URL, a missing credential or a failed
// description backend call. The credential is checked before any network call.
func (f *Finder) Find(ctx context.Context, imageURL string) (*domain.FinderResult, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, domain.ErrNoImageURL
	}

	runID := uuid.NewString()
	logger := f.logger.With("run_id", runID)

	if err := f.describer.Ready(); err != nil {
		f.metrics.IncRun("config_error")
		return nil, fmt.Errorf("description backend not ready: %w", err)
	}

	logger.Info("starting search", "image_url", imageURL)

	started := time.Now()
	image := f.preparer.Prepare(ctx, imageURL)
	f.metrics.ObserveStage(metrics.StageImage, started)
	if !image.Embedded {
		f.metrics.IncStageFailure(metrics.StageImage)
	}

	ext, err := f.extract(ctx, logger, image)
	if err != nil {
		f.metrics.IncStageFailure(metrics.StageDescription)
		if errors.Is(err, domain.ErrMissingCredential) {
			f.metrics.IncRun("config_error")
		} else {
			f.metrics.IncRun("backend_error")
		}
		return nil, fmt.Errorf("extract query: %w", err)
	}

	result := &domain.FinderResult{Tutorials: []domain.VideoCandidate{}}

	if !ext.HasQuery() {
		logger.Info("image rejected",
			"outcome", ext.Outcome.String(),
			"reason", ext.Result.Reason,
		)
		result.Reason = ext.Result.Reason
	} else {
		result.ProductKeyword = ext.Result.Query
		result.Tutorials = f.search(ctx, logger, ext.Result.Query)
	}

	f.metrics.IncRun(ext.Outcome.String())
	f.metrics.Tutorials.Set(float64(len(result.Tutorials)))

	f.publish(ctx, logger, &domain.Report{
		RunID:    runID,
		ImageURL: imageURL,
		Outcome:  ext.Outcome,
		Result:   *result,
	})

	logger.Info("search completed",
		"product_keyword", result.ProductKeyword,
		"tutorials", len(result.Tutorials),
		"duration", time.Since(started),
	)

	return result, nil
}

func (f *Finder) extract(ctx context.Context, logger *slog.Logger, image domain.PortableImage) (domain.Extraction, error) {
	started := time.Now()
	defer f.metrics.ObserveStage(metrics.StageDescription, started)

	raw, err := f.describer.Describe(ctx, image, Instruction)
	if err != nil {
		return domain.Extraction{}, err
	}

	ext := Interpret(raw)
	if ext.Outcome == domain.Uninterpretable {
		logger.Warn("description response is not structured", "raw", raw)
	} else {
		logger.Debug("description interpreted",
			"outcome", ext.Outcome.String(),
			"material", ext.Result.Material,
			"specific_object", ext.Result.SpecificObject,
			"context", ext.Result.Context,
		)
	}

	return ext, nil
}

// search queries the video backend with the suffixed query, oversampling so
// ranking can surface good results the backend ordered low. Backend failure
// yields an empty list.
func (f *Finder) search(ctx context.Context, logger *slog.Logger, query string) []domain.VideoCandidate {
	started := time.Now()
	defer f.metrics.ObserveStage(metrics.StageSearch, started)

	limit := f.config.Limit
	hits, err := f.searcher.Search(ctx, f.searchQuery(query), limit*f.config.Oversample)
	if err != nil {
		f.metrics.IncStageFailure(metrics.StageSearch)
		logger.Warn("video search failed", "query", query, "error", err)
		return []domain.VideoCandidate{}
	}

	candidates := make([]domain.VideoCandidate, 0, len(hits))
	for _, hit := range hits {
		if hit.Title == "" || hit.URL == "" {
			f.metrics.Dropped.Inc()
			logger.Debug("skipping incomplete search hit", "title", hit.Title, "url", hit.URL)
			continue
		}

		c := ranking.Candidate(hit, query)
		c.Language = detectLanguage(hit.Title)
		if f.config.Language != "" && c.Language != "" && c.Language != f.config.Language {
			f.metrics.Dropped.Inc()
			continue
		}

		candidates = append(candidates, c)
	}

	return ranking.Top(candidates, limit)
}

// searchQuery appends the configured suffix unless the query already ends
// with it.
func (f *Finder) searchQuery(query string) string {
	suffix := strings.TrimSpace(f.config.Suffix)
	if suffix == "" || strings.HasSuffix(strings.ToLower(query), strings.ToLower(suffix)) {
		return query
	}
	return query + " " + suffix
}

func (f *Finder) publish(ctx context.Context, logger *slog.Logger, report *domain.Report) {
	if f.publisher == nil {
		return
	}
	if err := f.publisher.Publish(ctx, report); err != nil {
		f.metrics.IncStageFailure(metrics.StagePublish)
		logger.Warn("failed to publish result", "error", err)
	}
}
