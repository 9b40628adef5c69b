// Package trendcontext turns raw search-trend data into bounded,
// quality-scored context payloads for the generation pipeline. Every
// operation is a pure function of its inputs; nothing here performs I/O.
package trendcontext

// Task names the downstream generation stage a context payload is shaped for.
type Task string

const (
	TaskProblemExtraction  Task = "problem_extraction"
	TaskMarketMaturity     Task = "market_maturity"
	TaskFeatureGeneration  Task = "feature_generation"
	TaskCompetitorAnalysis Task = "competitor_analysis"
	TaskFeatureEnhancement Task = "feature_enhancement"
)

// Tasks returns the valid task names in a stable order.
func Tasks() []Task {
	return []Task{
		TaskProblemExtraction,
		TaskMarketMaturity,
		TaskFeatureGeneration,
		TaskCompetitorAnalysis,
		TaskFeatureEnhancement,
	}
}

type TrendDirection string

const (
	DirectionRising       TrendDirection = "rising"
	DirectionFalling      TrendDirection = "falling"
	DirectionStable       TrendDirection = "stable"
	DirectionInsufficient TrendDirection = "insufficient_data"
)

// InterestPoint is one (timestamp, value) sample of search interest.
type InterestPoint struct {
	Date     string  `json:"date"`
	Interest float64 `json:"interest"`
}

// QueryEntry is one related search query with its relative-interest score.
type QueryEntry struct {
	Query string `json:"query"`
	Value int    `json:"value"`
}

// RegionInterest is the per-region interest breakdown, when the source
// supplies one.
type RegionInterest struct {
	Region   string  `json:"region"`
	Interest float64 `json:"interest"`
}

// RawTrendsRecord is the trends data as fetched from the source. Any field
// except Keyword may be empty; absence is valid, not an error.
type RawTrendsRecord struct {
	Keyword          string           `json:"keyword"`
	InterestOverTime []InterestPoint  `json:"interest_over_time,omitempty"`
	TopQueries       []QueryEntry     `json:"top_queries,omitempty"`
	RisingQueries    []QueryEntry     `json:"rising_queries,omitempty"`
	Regions          []RegionInterest `json:"regions,omitempty"`
	RelatedTopics    []string         `json:"related_topics,omitempty"`
}

// CleanedTrendsRecord has the same shape as RawTrendsRecord with the
// cleaning invariants enforced: interest values clamped to [0,100],
// unparsable timestamps dropped, query text normalized and de-duplicated.
// It is created once per run and never mutated afterward.
type CleanedTrendsRecord struct {
	Keyword          string           `json:"keyword"`
	InterestOverTime []InterestPoint  `json:"interest_over_time,omitempty"`
	TopQueries       []QueryEntry     `json:"top_queries,omitempty"`
	RisingQueries    []QueryEntry     `json:"rising_queries,omitempty"`
	Regions          []RegionInterest `json:"regions,omitempty"`
	RelatedTopics    []string         `json:"related_topics,omitempty"`
}

// SeriesStats holds basic statistics of the interest series.
type SeriesStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
}

// KeywordCluster groups queries sharing a significant token.
type KeywordCluster struct {
	Stem    string   `json:"stem"`
	Queries []string `json:"queries"`
}

// EnrichedInsights is derived from a CleanedTrendsRecord and attached
// alongside it, never merged back in. Volatility is the coefficient of
// variation and is nil when undefined (empty series or zero mean).
type EnrichedInsights struct {
	Stats             *SeriesStats     `json:"stats,omitempty"`
	Direction         TrendDirection   `json:"trend_direction"`
	Volatility        *float64         `json:"volatility,omitempty"`
	Clusters          []KeywordCluster `json:"keyword_clusters,omitempty"`
	ProblemIndicators []string         `json:"problem_indicators,omitempty"`
	QueryCount        int              `json:"query_count"`
}

// SummaryStats is the fixed-size statistical digest used by the
// market-maturity view.
type SummaryStats struct {
	Mean       float64        `json:"mean"`
	Median     float64        `json:"median"`
	Volatility *float64       `json:"volatility"`
	Direction  TrendDirection `json:"trend_direction"`
}

// TaskOptimizedView is the bounded, task-scoped selection handed to one
// generation stage. Only the fields relevant to the view's Task are
// populated; every slice obeys a fixed bound set by Config regardless of
// input size.
type TaskOptimizedView struct {
	Task Task `json:"task"`

	// problem_extraction
	ProblemQueries []string `json:"problem_queries,omitempty"`
	RisingProblems []string `json:"rising_problems,omitempty"`
	ContextQueries []string `json:"context_queries,omitempty"`

	// market_maturity
	SummaryStats   *SummaryStats   `json:"summary_stats,omitempty"`
	InterestSample []InterestPoint `json:"interest_sample,omitempty"`

	// feature_generation
	Clusters        []KeywordCluster `json:"clusters,omitempty"`
	EmergingQueries []string         `json:"emerging_queries,omitempty"`

	// competitor_analysis
	TopQueries    []string `json:"top_queries,omitempty"`
	ClusterLabels []string `json:"cluster_labels,omitempty"`

	// feature_enhancement
	RisingQueries []string `json:"rising_queries,omitempty"`
}

// ElementCount reports the total number of elements the view carries, the
// quantity bounded by the optimizer's per-task budget.
func (v TaskOptimizedView) ElementCount() int {
	n := len(v.ProblemQueries) + len(v.RisingProblems) + len(v.ContextQueries) +
		len(v.InterestSample) + len(v.EmergingQueries) + len(v.TopQueries) +
		len(v.ClusterLabels) + len(v.RisingQueries)
	for _, c := range v.Clusters {
		n += 1 + len(c.Queries)
	}
	if v.SummaryStats != nil {
		n += 4
	}
	return n
}

// QualityAssessment scores how much of the expected data shape is actually
// populated. It is a pure function of the cleaned record.
type QualityAssessment struct {
	HasInterestData   bool     `json:"has_interest_data"`
	HasRelatedQueries bool     `json:"has_related_queries"`
	HasRisingSearches bool     `json:"has_rising_searches"`
	CompletenessScore float64  `json:"data_completeness_score"`
	Recommendations   []string `json:"recommendations"`
}

// MarketTrendInsight is a coarse qualitative reading of the interest series.
type MarketTrendInsight struct {
	Direction       TrendDirection `json:"direction"`
	VolatilityLevel string         `json:"volatility"`
	InterestLevel   string         `json:"interest_level"`
}

// ProblemLandscape summarizes how problem-laden the query set is.
type ProblemLandscape struct {
	HasPainPoints  bool    `json:"has_pain_points"`
	ProblemDensity float64 `json:"problem_density"`
}

// SummaryInsights carries the derived highlights included with every
// assembled context.
type SummaryInsights struct {
	MarketTrend      *MarketTrendInsight `json:"market_trend,omitempty"`
	ProblemLandscape ProblemLandscape    `json:"problem_landscape"`
	ClusterThemes    []string            `json:"cluster_themes,omitempty"`
}

// AssembledContext is the final payload for one (run, task) pair. The
// assembler composes it from the bounded inputs without transforming them,
// so its size is the sum of theirs.
type AssembledContext struct {
	Keyword         string            `json:"keyword"`
	OptimizedData   TaskOptimizedView `json:"optimized_data"`
	DataQuality     QualityAssessment `json:"data_quality"`
	SummaryInsights SummaryInsights   `json:"summary_insights"`
}
