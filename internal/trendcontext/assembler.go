package trendcontext

// Assembler composes the final context payload from the bounded view, the
// quality assessment, and summary highlights derived from the insights.
// It introduces no growth: the output size is the sum of its inputs.
type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler { return &Assembler{cfg: cfg} }

func (a *Assembler) Assemble(keyword string, view TaskOptimizedView, quality QualityAssessment, insights EnrichedInsights) AssembledContext {
	return AssembledContext{
		Keyword:         keyword,
		OptimizedData:   view,
		DataQuality:     quality,
		SummaryInsights: a.summarize(insights),
	}
}

func (a *Assembler) summarize(insights EnrichedInsights) SummaryInsights {
	s := SummaryInsights{
		ProblemLandscape: ProblemLandscape{
			HasPainPoints: len(insights.ProblemIndicators) > 0,
		},
	}
	if insights.QueryCount > 0 {
		s.ProblemLandscape.ProblemDensity = float64(len(insights.ProblemIndicators)) / float64(insights.QueryCount)
	}

	if insights.Stats != nil {
		trend := &MarketTrendInsight{Direction: insights.Direction, VolatilityLevel: "unknown", InterestLevel: "low"}
		if insights.Volatility != nil {
			trend.VolatilityLevel = "low"
			if *insights.Volatility >= a.cfg.HighVolatilityCV {
				trend.VolatilityLevel = "high"
			}
		}
		if insights.Stats.Mean > a.cfg.HighInterestMean {
			trend.InterestLevel = "high"
		}
		s.MarketTrend = trend
	}

	for i, c := range insights.Clusters {
		if i == a.cfg.MaxClusters {
			break
		}
		s.ClusterThemes = append(s.ClusterThemes, c.Stem)
	}
	return s
}
