package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jamiesonbates/trendscout/internal/trendcontext"
)

const (
	StageTrendContext       = "trend_context"
	StageProblemExtraction  = "problem_extraction"
	StageMarketMaturity     = "market_maturity"
	StageGoalExtraction     = "goal_extraction"
	StageCategorySelection  = "category_selection"
	StageFeatureGeneration  = "feature_generation"
	StageCompetitorAnalysis = "competitor_analysis"
	StageFeatureEnhancement = "feature_enhancement"
)

type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

type StageProgressFn func(stage, message string)

// TrendsFetcher retrieves the raw search-trend record for a keyword.
type TrendsFetcher interface {
	FetchTrends(ctx context.Context, keyword string) (trendcontext.RawTrendsRecord, error)
}

// CompetitorFetcher discovers competing products for a keyword. A nil
// fetcher disables the competitor stages.
type CompetitorFetcher interface {
	FindCompetitors(ctx context.Context, keyword string) ([]CompetitorProfile, error)
}

type Pipeline struct {
	builder     *trendcontext.Builder
	runner      StageRunner
	source      TrendsFetcher
	competitors CompetitorFetcher
}

func NewPipeline(builder *trendcontext.Builder, runner StageRunner, source TrendsFetcher, competitors CompetitorFetcher) *Pipeline {
	return &Pipeline{builder: builder, runner: runner, source: source, competitors: competitors}
}

func (p *Pipeline) Run(ctx context.Context, req RequestEnvelope) (PipelineResult, error) {
	return p.runWithProgress(ctx, req, nil)
}

func (p *Pipeline) RunWithProgress(ctx context.Context, req RequestEnvelope, progress StageProgressFn) (PipelineResult, error) {
	return p.runWithProgress(ctx, req, progress)
}

func (p *Pipeline) runWithProgress(ctx context.Context, req RequestEnvelope, progress StageProgressFn) (PipelineResult, error) {
	res := PipelineResult{
		Request:  req,
		Attempts: map[string]StageAttemptMetrics{},
		Metadata: PipelineMetadata{StartedAt: time.Now(), Mode: ReportModeComplete},
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		return res, fmt.Errorf("keyword is required")
	}
	if len(req.Keyword) > MaxKeywordChars {
		return res, fmt.Errorf("keyword exceeds %d characters", MaxKeywordChars)
	}
	res.Request = req

	emit(progress, StageTrendContext, "Fetching and preparing trend data...")
	raw, err := p.source.FetchTrends(ctx, req.Keyword)
	if err != nil {
		return res, &StageError{Stage: StageTrendContext, Err: err}
	}
	prepared, err := p.builder.Prepare(raw)
	if err != nil {
		return res, &StageError{Stage: StageTrendContext, Err: err}
	}
	res.Prepared = prepared
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, StageTrendContext)

	// First generation stage failing means there is nothing to report on.
	if err := p.runProblems(ctx, &res, progress); err != nil {
		return res, err
	}
	if err := p.runMaturity(ctx, &res, progress); err != nil {
		return p.finalizeDegraded(res, StageMarketMaturity, err), nil
	}
	if err := p.runGoals(ctx, &res, progress); err != nil {
		return p.finalizeDegraded(res, StageGoalExtraction, err), nil
	}
	if err := p.runCategories(ctx, &res, progress); err != nil {
		return p.finalizeDegraded(res, StageCategorySelection, err), nil
	}
	if err := p.runFeatures(ctx, &res, progress); err != nil {
		return p.finalizeDegraded(res, StageFeatureGeneration, err), nil
	}

	if !req.IncludeCompetitors || p.competitors == nil {
		res.Metadata.StagesSkipped = append(res.Metadata.StagesSkipped, StageCompetitorAnalysis, StageFeatureEnhancement)
		return p.finalize(res), nil
	}

	emit(progress, StageCompetitorAnalysis, "Searching for competing products...")
	found, err := p.competitors.FindCompetitors(ctx, req.Keyword)
	if err != nil {
		res.Metadata.StagesSkipped = append(res.Metadata.StagesSkipped, StageCompetitorAnalysis, StageFeatureEnhancement)
		return p.finalizeDegraded(res, StageCompetitorAnalysis, err), nil
	}
	res.Competitors = found

	if err := p.runGaps(ctx, &res, progress); err != nil {
		res.Metadata.StagesSkipped = append(res.Metadata.StagesSkipped, StageFeatureEnhancement)
		return p.finalizeDegraded(res, StageCompetitorAnalysis, err), nil
	}
	if err := p.runEnhancement(ctx, &res, progress); err != nil {
		return p.finalizeDegraded(res, StageFeatureEnhancement, err), nil
	}

	return p.finalize(res), nil
}

func (p *Pipeline) runProblems(ctx context.Context, res *PipelineResult, progress StageProgressFn) error {
	emit(progress, StageProblemExtraction, "Extracting user problems from search patterns...")
	tc, err := res.Prepared.ContextFor(trendcontext.TaskProblemExtraction)
	if err != nil {
		return &StageError{Stage: StageProblemExtraction, Err: err}
	}
	out, m, err := p.runner.ExtractProblems(ctx, tc)
	if err != nil {
		return &StageError{Stage: StageProblemExtraction, Err: err}
	}
	res.Problems = out
	res.Attempts[StageProblemExtraction] = m
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, StageProblemExtraction)
	return nil
}

func (p *Pipeline) runMaturity(ctx context.Context, res *PipelineResult, progress StageProgressFn) error {
	emit(progress, StageMarketMaturity, "Assessing market maturity...")
	tc, err := res.Prepared.ContextFor(trendcontext.TaskMarketMaturity)
	if err != nil {
		return &StageError{Stage: StageMarketMaturity, Err: err}
	}
	out, m, err := p.runner.AssessMaturity(ctx, tc)
	if err != nil {
		return &StageError{Stage: StageMarketMaturity, Err: err}
	}
	res.Maturity = &out
	res.Attempts[StageMarketMaturity] = m
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, StageMarketMaturity)
	return nil
}

func (p *Pipeline) runGoals(ctx context.Context, res *PipelineResult, progress StageProgressFn) error {
	emit(progress, StageGoalExtraction, "Deriving user goals...")
	out, m, err := p.runner.ExtractGoals(ctx, res.Problems)
	if err != nil {
		return &StageError{Stage: StageGoalExtraction, Err: err}
	}
	res.Goals = &out
	res.Attempts[StageGoalExtraction] = m
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, StageGoalExtraction)
	return nil
}

func (p *Pipeline) runCategories(ctx context.Context, res *PipelineResult, progress StageProgressFn) error {
	emit(progress, StageCategorySelection, "Selecting feature categories...")
	out, m, err := p.runner.SuggestCategories(ctx, *res.Goals, *res.Maturity)
	if err != nil {
		return &StageError{Stage: StageCategorySelection, Err: err}
	}
	res.Categories = &out
	res.Attempts[StageCategorySelection] = m
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, StageCategorySelection)
	return nil
}

func (p *Pipeline) runFeatures(ctx context.Context, res *PipelineResult, progress StageProgressFn) error {
	emit(progress, StageFeatureGeneration, "Generating product features...")
	tc, err := res.Prepared.ContextFor(trendcontext.TaskFeatureGeneration)
	if err != nil {
		return &StageError{Stage: StageFeatureGeneration, Err: err}
	}
	out, m, err := p.runner.GenerateFeatures(ctx, tc, *res.Categories, *res.Goals)
	if err != nil {
		return &StageError{Stage: StageFeatureGeneration, Err: err}
	}
	res.Features = &out
	res.Attempts[StageFeatureGeneration] = m
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, StageFeatureGeneration)
	return nil
}

func (p *Pipeline) runGaps(ctx context.Context, res *PipelineResult, progress StageProgressFn) error {
	emit(progress, StageCompetitorAnalysis, "Analyzing competitor gaps...")
	tc, err := res.Prepared.ContextFor(trendcontext.TaskCompetitorAnalysis)
	if err != nil {
		return &StageError{Stage: StageCompetitorAnalysis, Err: err}
	}
	out, m, err := p.runner.AnalyzeCompetitorGaps(ctx, tc, *res.Features, res.Competitors)
	if err != nil {
		return &StageError{Stage: StageCompetitorAnalysis, Err: err}
	}
	res.Gaps = &out
	res.Attempts[StageCompetitorAnalysis] = m
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, StageCompetitorAnalysis)
	return nil
}

func (p *Pipeline) runEnhancement(ctx context.Context, res *PipelineResult, progress StageProgressFn) error {
	emit(progress, StageFeatureEnhancement, "Enhancing features with competitive insight...")
	tc, err := res.Prepared.ContextFor(trendcontext.TaskFeatureEnhancement)
	if err != nil {
		return &StageError{Stage: StageFeatureEnhancement, Err: err}
	}
	out, m, err := p.runner.EnhanceFeatures(ctx, tc, *res.Gaps, *res.Features)
	if err != nil {
		return &StageError{Stage: StageFeatureEnhancement, Err: err}
	}
	res.Enhanced = &out
	res.Attempts[StageFeatureEnhancement] = m
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, StageFeatureEnhancement)
	return nil
}

func (p *Pipeline) finalizeDegraded(res PipelineResult, failedStage string, err error) PipelineResult {
	res.Metadata.Mode = ReportModeDegraded
	res.Metadata.StageFailed = failedStage
	res.Metadata.DegradedReason = err.Error()
	return p.finalize(res)
}

func (p *Pipeline) finalize(res PipelineResult) PipelineResult {
	res.Metadata.CompletedAt = time.Now()
	if res.Metadata.Mode == "" {
		res.Metadata.Mode = ReportModeComplete
	}
	res.Metadata.StageAttempts = map[string]int{}
	res.Metadata.StageContentRetries = map[string]int{}
	for stage, m := range res.Attempts {
		res.Metadata.StageAttempts[stage] = m.Attempts
		res.Metadata.StageContentRetries[stage] = m.ContentRetries
		res.Metadata.TotalLLMCalls += m.Attempts
		if m.Attempts > 1 {
			res.Metadata.TotalRetries += (m.Attempts - 1)
		}
	}
	return res
}

func emit(progress StageProgressFn, stage, message string) {
	if progress != nil {
		progress(stage, message)
	}
}

func StageNameFromError(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "pipeline"
}
