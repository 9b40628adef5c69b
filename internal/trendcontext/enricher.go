package trendcontext

import (
	"math"
	"sort"
	"strings"
)

// Enricher derives statistical and pattern features from a cleaned record.
type Enricher struct {
	cfg       Config
	lexicon   []string
	stopwords map[string]struct{}
}

func NewEnricher(cfg Config) *Enricher {
	stops := make(map[string]struct{}, len(cfg.Stopwords))
	for _, s := range cfg.Stopwords {
		stops[strings.ToLower(s)] = struct{}{}
	}
	lex := make([]string, len(cfg.ProblemLexicon))
	for i, term := range cfg.ProblemLexicon {
		lex[i] = strings.ToLower(term)
	}
	return &Enricher{cfg: cfg, lexicon: lex, stopwords: stops}
}

// Enrich computes trend direction, volatility, problem indicators, and
// keyword clusters. Deterministic given the same input and configuration.
func (e *Enricher) Enrich(clean CleanedTrendsRecord) EnrichedInsights {
	series := interestValues(clean.InterestOverTime)
	insights := EnrichedInsights{
		Stats:      seriesStats(series),
		Direction:  e.trendDirection(series),
		Volatility: volatility(series),
	}
	queries := allQueryTexts(clean)
	insights.QueryCount = len(queries)
	insights.ProblemIndicators = e.problemIndicators(queries)
	insights.Clusters = e.clusterQueries(queries)
	return insights
}

func (e *Enricher) trendDirection(series []float64) TrendDirection {
	if len(series) < e.cfg.MinSeriesPoints {
		return DirectionInsufficient
	}
	third := len(series) / 3
	first := mean(series[:third])
	last := mean(series[len(series)-third:])
	if first == 0 {
		if last > 0 {
			return DirectionRising
		}
		return DirectionStable
	}
	change := (last - first) / first
	switch {
	case change > e.cfg.TrendThreshold:
		return DirectionRising
	case change < -e.cfg.TrendThreshold:
		return DirectionFalling
	default:
		return DirectionStable
	}
}

// problemIndicators flags queries whose normalized text contains a lexicon
// term. Substring match only; no generation call is involved.
func (e *Enricher) problemIndicators(queries []string) []string {
	var out []string
	for _, q := range queries {
		for _, term := range e.lexicon {
			if strings.Contains(q, term) {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

// clusterQueries groups queries by shared significant tokens. A token is
// significant if it is not a stopword and at least two queries contain it.
// Clusters are ordered by member count, then token, for determinism.
func (e *Enricher) clusterQueries(queries []string) []KeywordCluster {
	counts := map[string]int{}
	for _, q := range queries {
		seen := map[string]struct{}{}
		for _, tok := range strings.Fields(q) {
			if _, stop := e.stopwords[tok]; stop {
				continue
			}
			if len(tok) < 2 {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			counts[tok]++
		}
	}
	var stems []string
	for tok, n := range counts {
		if n > 1 {
			stems = append(stems, tok)
		}
	}
	sort.Slice(stems, func(i, j int) bool {
		if counts[stems[i]] != counts[stems[j]] {
			return counts[stems[i]] > counts[stems[j]]
		}
		return stems[i] < stems[j]
	})
	clusters := make([]KeywordCluster, 0, len(stems))
	for _, stem := range stems {
		var members []string
		for _, q := range queries {
			if containsToken(q, stem) {
				members = append(members, q)
			}
		}
		if len(members) > 1 {
			clusters = append(clusters, KeywordCluster{Stem: stem, Queries: members})
		}
	}
	return clusters
}

func containsToken(query, token string) bool {
	for _, tok := range strings.Fields(query) {
		if tok == token {
			return true
		}
	}
	return false
}

func allQueryTexts(clean CleanedTrendsRecord) []string {
	out := make([]string, 0, len(clean.TopQueries)+len(clean.RisingQueries))
	for _, q := range clean.TopQueries {
		out = append(out, q.Query)
	}
	for _, q := range clean.RisingQueries {
		out = append(out, q.Query)
	}
	return out
}

func interestValues(points []InterestPoint) []float64 {
	if len(points) == 0 {
		return nil
	}
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Interest
	}
	return out
}

func seriesStats(series []float64) *SeriesStats {
	if len(series) == 0 {
		return nil
	}
	s := &SeriesStats{Mean: mean(series), Median: median(series), Max: series[0], Min: series[0]}
	for _, v := range series {
		if v > s.Max {
			s.Max = v
		}
		if v < s.Min {
			s.Min = v
		}
	}
	return s
}

// volatility is the coefficient of variation. It is nil, never a division
// error, when the series is empty or its mean is zero.
func volatility(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	m := mean(series)
	if m == 0 {
		return nil
	}
	cv := stddev(series, m) / m
	return &cv
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddev is the sample standard deviation; zero for a single point.
func stddev(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}
