package trendcontext

// Optimizer reduces a cleaned+enriched dataset to a bounded, task-specific
// view. Dispatch is a lookup table keyed by task name; new tasks register a
// new rule rather than extending a branch chain.
type Optimizer struct {
	cfg   Config
	rules map[Task]samplingRule
}

type samplingRule func(o *Optimizer, clean CleanedTrendsRecord, insights EnrichedInsights) TaskOptimizedView

func NewOptimizer(cfg Config) *Optimizer {
	o := &Optimizer{cfg: cfg}
	o.rules = map[Task]samplingRule{
		TaskProblemExtraction:  (*Optimizer).problemExtractionView,
		TaskMarketMaturity:     (*Optimizer).marketMaturityView,
		TaskFeatureGeneration:  (*Optimizer).featureGenerationView,
		TaskCompetitorAnalysis: (*Optimizer).competitorAnalysisView,
		TaskFeatureEnhancement: (*Optimizer).featureEnhancementView,
	}
	return o
}

// Optimize builds the view for task. An unrecognized task is a contract
// violation and returns *InvalidTaskError.
func (o *Optimizer) Optimize(clean CleanedTrendsRecord, insights EnrichedInsights, task Task) (TaskOptimizedView, error) {
	rule, ok := o.rules[task]
	if !ok {
		return TaskOptimizedView{}, &InvalidTaskError{Task: task, Valid: Tasks()}
	}
	view := rule(o, clean, insights)
	view.Task = task
	return view, nil
}

// Bound returns the maximum ElementCount Optimize can produce for task,
// independent of input size. It returns 0 for unknown tasks.
func (o *Optimizer) Bound(task Task) int {
	c := o.cfg
	switch task {
	case TaskProblemExtraction:
		return c.MaxProblemQueries + c.MaxRisingProblems + c.MaxContextQueries
	case TaskMarketMaturity:
		return c.SampleCount + 4
	case TaskFeatureGeneration:
		return c.MaxClusters*(1+c.MaxClusterQueries) + c.MaxEmergingQueries
	case TaskCompetitorAnalysis:
		return c.MaxTopQueries + c.MaxClusters
	case TaskFeatureEnhancement:
		return c.MaxEmergingQueries + c.MaxProblemQueries
	default:
		return 0
	}
}

func (o *Optimizer) problemExtractionView(clean CleanedTrendsRecord, insights EnrichedInsights) TaskOptimizedView {
	return TaskOptimizedView{
		ProblemQueries: truncate(insights.ProblemIndicators, o.cfg.MaxProblemQueries),
		RisingProblems: truncate(queryTexts(clean.RisingQueries), o.cfg.MaxRisingProblems),
		ContextQueries: truncate(queryTexts(clean.TopQueries), o.cfg.MaxContextQueries),
	}
}

func (o *Optimizer) marketMaturityView(clean CleanedTrendsRecord, insights EnrichedInsights) TaskOptimizedView {
	view := TaskOptimizedView{
		InterestSample: downsample(clean.InterestOverTime, o.cfg.SampleCount),
	}
	if insights.Stats != nil {
		view.SummaryStats = &SummaryStats{
			Mean:       insights.Stats.Mean,
			Median:     insights.Stats.Median,
			Volatility: insights.Volatility,
			Direction:  insights.Direction,
		}
	}
	return view
}

func (o *Optimizer) featureGenerationView(clean CleanedTrendsRecord, insights EnrichedInsights) TaskOptimizedView {
	clusters := make([]KeywordCluster, 0, o.cfg.MaxClusters)
	for _, c := range insights.Clusters {
		if len(clusters) == o.cfg.MaxClusters {
			break
		}
		clusters = append(clusters, KeywordCluster{
			Stem:    c.Stem,
			Queries: truncate(c.Queries, o.cfg.MaxClusterQueries),
		})
	}
	return TaskOptimizedView{
		Clusters:        clusters,
		EmergingQueries: truncate(queryTexts(clean.RisingQueries), o.cfg.MaxEmergingQueries),
	}
}

func (o *Optimizer) competitorAnalysisView(clean CleanedTrendsRecord, insights EnrichedInsights) TaskOptimizedView {
	labels := make([]string, 0, o.cfg.MaxClusters)
	for _, c := range insights.Clusters {
		if len(labels) == o.cfg.MaxClusters {
			break
		}
		labels = append(labels, c.Stem)
	}
	return TaskOptimizedView{
		TopQueries:    truncate(queryTexts(clean.TopQueries), o.cfg.MaxTopQueries),
		ClusterLabels: labels,
	}
}

func (o *Optimizer) featureEnhancementView(clean CleanedTrendsRecord, insights EnrichedInsights) TaskOptimizedView {
	return TaskOptimizedView{
		RisingQueries:  truncate(queryTexts(clean.RisingQueries), o.cfg.MaxEmergingQueries),
		ProblemQueries: truncate(insights.ProblemIndicators, o.cfg.MaxProblemQueries),
	}
}

// downsample selects count evenly spaced points across the whole series,
// preserving the trend shape rather than taking a prefix.
func downsample(points []InterestPoint, count int) []InterestPoint {
	if len(points) == 0 {
		return nil
	}
	if len(points) <= count {
		return append([]InterestPoint(nil), points...)
	}
	if count <= 1 {
		return []InterestPoint{points[len(points)/2]}
	}
	out := make([]InterestPoint, count)
	for i := 0; i < count; i++ {
		idx := i * (len(points) - 1) / (count - 1)
		out[i] = points[idx]
	}
	return out
}

func queryTexts(entries []QueryEntry) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Query
	}
	return out
}

func truncate(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}
