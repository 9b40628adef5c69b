package trendcontext

import (
	"regexp"
	"strings"
	"time"
)

// Query text keeps letters, digits, whitespace, hyphens, and dots;
// everything else (markup, control characters, punctuation) is stripped.
var queryCharRe = regexp.MustCompile(`[^\p{L}\p{N}\s\-.]+`)

// Timestamp layouts accepted for interest points.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01"}

// Cleaner normalizes and sanity-checks raw trend records. Clean never
// fails: malformed values are clamped or dropped and the gaps surface
// downstream through the quality assessment.
type Cleaner struct {
	cfg Config
}

func NewCleaner(cfg Config) *Cleaner { return &Cleaner{cfg: cfg} }

// Clean produces a CleanedTrendsRecord from raw. It is a pure transform:
// interest values are clamped to [0,100], points with unparsable
// timestamps are dropped, and query lists are normalized and de-duplicated
// with first-occurrence order preserved.
func (c *Cleaner) Clean(raw RawTrendsRecord) CleanedTrendsRecord {
	out := CleanedTrendsRecord{
		Keyword:       strings.TrimSpace(raw.Keyword),
		RelatedTopics: cleanTopics(raw.RelatedTopics),
	}
	out.InterestOverTime = cleanSeries(raw.InterestOverTime)
	out.TopQueries = cleanQueries(raw.TopQueries)
	out.RisingQueries = cleanQueries(raw.RisingQueries)
	out.Regions = cleanRegions(raw.Regions)
	return out
}

func cleanSeries(points []InterestPoint) []InterestPoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]InterestPoint, 0, len(points))
	for _, p := range points {
		if !parseableDate(p.Date) {
			continue
		}
		out = append(out, InterestPoint{Date: p.Date, Interest: clamp(p.Interest)})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanQueries(entries []QueryEntry) []QueryEntry {
	if len(entries) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]QueryEntry, 0, len(entries))
	for _, e := range entries {
		text := NormalizeQuery(e.Query)
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, QueryEntry{Query: text, Value: e.Value})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanRegions(regions []RegionInterest) []RegionInterest {
	if len(regions) == 0 {
		return nil
	}
	out := make([]RegionInterest, 0, len(regions))
	for _, r := range regions {
		name := collapseWhitespace(r.Region)
		if name == "" {
			continue
		}
		out = append(out, RegionInterest{Region: name, Interest: clamp(r.Interest)})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanTopics(topics []string) []string {
	if len(topics) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		text := NormalizeQuery(t)
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NormalizeQuery lowercases, strips control/markup characters, and
// collapses internal whitespace. The result is the de-duplication key.
func NormalizeQuery(text string) string {
	text = strings.ToLower(text)
	text = queryCharRe.ReplaceAllString(text, "")
	return collapseWhitespace(text)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseableDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
