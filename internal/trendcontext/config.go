package trendcontext

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries every lexicon, threshold, and bound the pipeline stages
// use. It is passed at construction and never read from ambient state, so
// tests can swap in tiny lexicons. The threshold values are tuning knobs,
// not derived constants; treat them as configuration.
type Config struct {
	// ProblemLexicon terms flag a query as problem-indicating when they
	// appear as substrings of its normalized text.
	ProblemLexicon []string `yaml:"problem_lexicon"`

	// Stopwords are excluded from cluster-token candidates.
	Stopwords []string `yaml:"stopwords"`

	// TrendThreshold is the relative change between the first and last
	// thirds of the series above which the trend counts as rising (or,
	// negated, falling).
	TrendThreshold float64 `yaml:"trend_threshold"`

	// MinSeriesPoints is the shortest series considered long enough for a
	// trend-direction verdict and for full quality credit.
	MinSeriesPoints int `yaml:"min_series_points"`

	// Per-task selection bounds.
	MaxProblemQueries  int `yaml:"max_problem_queries"`
	MaxRisingProblems  int `yaml:"max_rising_problems"`
	MaxContextQueries  int `yaml:"max_context_queries"`
	SampleCount        int `yaml:"sample_count"`
	MaxClusters        int `yaml:"max_clusters"`
	MaxClusterQueries  int `yaml:"max_cluster_queries"`
	MaxEmergingQueries int `yaml:"max_emerging_queries"`
	MaxTopQueries      int `yaml:"max_top_queries"`

	// Quality-score weights and the short-series penalty. Interest data is
	// weighted highest because market-maturity analysis depends on it.
	InterestWeight     float64 `yaml:"interest_weight"`
	TopQueriesWeight   float64 `yaml:"top_queries_weight"`
	RisingWeight       float64 `yaml:"rising_weight"`
	ShortSeriesPenalty float64 `yaml:"short_series_penalty"`

	// Summary-insight cutoffs.
	HighVolatilityCV float64 `yaml:"high_volatility_cv"`
	HighInterestMean float64 `yaml:"high_interest_mean"`
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		ProblemLexicon: []string{
			"problem", "issue", "error", "bug", "fail", "broken",
			"difficult", "how to fix", "how to", "how do i", "solution",
			"fix", "repair", "resolve", "tutorial", "guide",
			"vs", "versus", "alternative", "compare", "difference",
			"not working", "doesn't work", "best way to", "problem with",
		},
		Stopwords: []string{
			"a", "an", "and", "are", "as", "at", "be", "best", "by", "for",
			"from", "how", "in", "is", "it", "my", "new", "of", "on", "or",
			"that", "the", "to", "top", "what", "why", "with", "you", "your",
		},
		TrendThreshold:     0.15,
		MinSeriesPoints:    6,
		MaxProblemQueries:  10,
		MaxRisingProblems:  5,
		MaxContextQueries:  3,
		SampleCount:        12,
		MaxClusters:        3,
		MaxClusterQueries:  5,
		MaxEmergingQueries: 5,
		MaxTopQueries:      5,
		InterestWeight:     0.5,
		TopQueriesWeight:   0.25,
		RisingWeight:       0.25,
		ShortSeriesPenalty: 0.15,
		HighVolatilityCV:   0.5,
		HighInterestMean:   50,
	}
}

// LoadConfig reads YAML overrides from path and applies them over
// DefaultConfig. Fields absent from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse trendcontext config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that would break the bound guarantees.
func (c Config) Validate() error {
	if c.TrendThreshold <= 0 {
		return fmt.Errorf("trend_threshold must be positive")
	}
	if c.MinSeriesPoints < 2 {
		return fmt.Errorf("min_series_points must be at least 2")
	}
	bounds := map[string]int{
		"max_problem_queries":  c.MaxProblemQueries,
		"max_rising_problems":  c.MaxRisingProblems,
		"max_context_queries":  c.MaxContextQueries,
		"sample_count":         c.SampleCount,
		"max_clusters":         c.MaxClusters,
		"max_cluster_queries":  c.MaxClusterQueries,
		"max_emerging_queries": c.MaxEmergingQueries,
		"max_top_queries":      c.MaxTopQueries,
	}
	for name, v := range bounds {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}
	total := c.InterestWeight + c.TopQueriesWeight + c.RisingWeight
	if total <= 0 {
		return fmt.Errorf("quality weights must sum to a positive value")
	}
	return nil
}
