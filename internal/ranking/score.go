// Package ranking turns raw video backend labels into a time-decayed
// popularity score.
package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"tutorial_finder/internal/domain"
)

const (
	// DecayBase discounts a video's views by 20% per year of age.
	DecayBase = 1.2
	viewsUnit = 1_000_000
)

// ParseViewCount concatenates every digit in a "N views" label. Abbreviated
// labels such as "1.2M views" therefore come out as 12.
func ParseViewCount(text string) int64 {
	if text == "" || !strings.Contains(strings.ToLower(text), "views") {
		return 0
	}

	var b strings.Builder
	for _, r := range text {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}

	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseAgeYears converts a "published N units ago" label to fractional years.
// The first integer token is the magnitude and the token after it the unit.
// Anything it cannot read counts as brand new.
func ParseAgeYears(text string) float64 {
	fields := strings.Fields(strings.ToLower(text))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		if i+1 >= len(fields) {
			return 0
		}

		unit := fields[i+1]
		switch {
		case strings.Contains(unit, "year"):
			return float64(n)
		case strings.Contains(unit, "month"):
			return float64(n) / 12
		case strings.Contains(unit, "week"):
			return float64(n) / 52
		case strings.Contains(unit, "day"):
			return float64(n) / 365
		default:
			return 0
		}
	}
	return 0
}

// Score is views in millions divided by DecayBase^years, rounded to three
// decimals.
func Score(views int64, years float64) float64 {
	if views < 0 {
		views = 0
	}
	if years < 0 {
		years = 0
	}
	raw := (float64(views) / viewsUnit) / math.Pow(DecayBase, years)
	return math.Round(raw*1000) / 1000
}

// FormatViews renders a view count for display: 1.2M, 45k, 999.
func FormatViews(views int64) string {
	switch {
	case views >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(views)/1_000_000)
	case views >= 1_000:
		return fmt.Sprintf("%dk", views/1000)
	default:
		return strconv.FormatInt(views, 10)
	}
}

// Candidate scores a single search hit for the given query.
func Candidate(hit domain.SearchHit, query string) domain.VideoCandidate {
	views := ParseViewCount(hit.ViewsText)
	return domain.VideoCandidate{
		Title:          hit.Title,
		URL:            hit.URL,
		ProductName:    query,
		RawViewCount:   views,
		FormattedViews: FormatViews(views),
		AgeText:        hit.AgeText,
		Score:          Score(views, ParseAgeYears(hit.AgeText)),
	}
}

// Sort orders candidates by score, highest first. Equal scores keep the
// backend's order.
func Sort(candidates []domain.VideoCandidate) {
	slices.SortStableFunc(candidates, func(a, b domain.VideoCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
}

// Top sorts candidates and truncates them to limit.
func Top(candidates []domain.VideoCandidate, limit int) []domain.VideoCandidate {
	Sort(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
