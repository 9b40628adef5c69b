package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jamiesonbates/trendscout/internal/trendcontext"
)

type StageRunner interface {
	ExtractProblems(ctx context.Context, tc trendcontext.AssembledContext) (ProblemsOutput, StageAttemptMetrics, error)
	AssessMaturity(ctx context.Context, tc trendcontext.AssembledContext) (MaturityOutput, StageAttemptMetrics, error)
	ExtractGoals(ctx context.Context, problems ProblemsOutput) (GoalsOutput, StageAttemptMetrics, error)
	SuggestCategories(ctx context.Context, goals GoalsOutput, maturity MaturityOutput) (CategoriesOutput, StageAttemptMetrics, error)
	GenerateFeatures(ctx context.Context, tc trendcontext.AssembledContext, cats CategoriesOutput, goals GoalsOutput) (FeaturesOutput, StageAttemptMetrics, error)
	AnalyzeCompetitorGaps(ctx context.Context, tc trendcontext.AssembledContext, features FeaturesOutput, competitors []CompetitorProfile) (CompetitorGapOutput, StageAttemptMetrics, error)
	EnhanceFeatures(ctx context.Context, tc trendcontext.AssembledContext, gaps CompetitorGapOutput, features FeaturesOutput) (EnhancedFeaturesOutput, StageAttemptMetrics, error)
}

// LLMStageRunner drives the generation stages. Feature reasoning runs on
// the heavy executor; maturity classification and goal extraction are
// simple enough for the light one.
type LLMStageRunner struct {
	heavy *StageExecutor
	light *StageExecutor
}

func NewLLMStageRunner(heavy, light *StageExecutor) *LLMStageRunner {
	return &LLMStageRunner{heavy: heavy, light: light}
}

const problemsPromptContext = `Identify the user problems and pain points revealed by this search-trend
data. Ground every problem in the queries provided; do not invent problems
the data does not support. Rate severity 1 (minor annoyance) to 10
(blocking pain). Cite the specific query or pattern as evidence.`

const problemsSchemaPrompt = `Required JSON schema:
{
  "problems":[{"problem":"string","evidence":"string","severity":"int 1-10"}],
  "analysis_summary":"string"
}`

const maturityPromptContext = `Classify the market maturity for this keyword from its interest-over-time
statistics and sampled series.

early
  Interest is emerging or accelerating from a low base. Few established
  solutions; demand is forming.

mid
  Interest is established and still growing or stable at meaningful
  volume. Competition exists but the market has room.

saturated
  Interest is flat or declining at high volume, or dominated by
  comparison/alternative searches. Entrants compete on differentiation.

Report confidence 0.0-1.0 and explain which signals drove the verdict.
If the summary stats report insufficient data, lower your confidence
accordingly rather than refusing to classify.`

const maturitySchemaPrompt = `Required JSON schema:
{
  "stage":"early|mid|saturated",
  "confidence":"float 0-1",
  "reasoning":"string"
}`

const goalsSchemaPrompt = `Required JSON schema:
{
  "goals":["string (2-5 user goals, each phrased as what the user is trying to achieve)"]
}`

const categoriesPromptContext = `Given the user goals and the market maturity verdict, propose product
feature categories worth building in. For an early market favor core
problem-solving categories; for a saturated market favor differentiation
and underserved-niche categories. Recommend exactly one category to lead
with.`

const categoriesSchemaPrompt = `Required JSON schema:
{
  "categories":[{"name":"string","rationale":"string"}],
  "recommended_category":"string (must match one category name)"
}`

const featuresPromptContext = `Generate innovative product features for the recommended category. Each
feature must map to a user goal or a clustered demand theme from the
trend data. Separate an MVP set from advanced features and rank all
features by priority. Note technical considerations that affect build
order.`

const featuresSchemaPrompt = `Required JSON schema:
{
  "features":[{"name":"string","description":"string","problem_solved":"string","differentiator":"string"}],
  "priority_ranking":["string (feature names, highest priority first)"],
  "mvp_features":["string (feature names)"],
  "advanced_features":["string (feature names)"],
  "technical_considerations":["string"]
}`

const gapsPromptContext = `Compare the proposed features against the competitor landscape below.
Identify gaps: needs the trend data shows that competitors do not serve,
and competitor weaknesses the proposed features could exploit. Only name
competitors from the provided list.`

const gapsSchemaPrompt = `Required JSON schema:
{
  "gaps":[{"competitor":"string","gap":"string","opportunity":"string"}],
  "unserved_needs":["string"]
}`

const enhancePromptContext = `Refine the proposed features using the competitor gap analysis and the
rising-demand queries. Strengthen differentiation where a gap was found;
do not add features unrelated to the analyzed demand. Close with a short
positioning summary.`

const enhanceSchemaPrompt = `Required JSON schema:
{
  "features":[{"name":"string","description":"string","enhancement":"string (what changed and why)"}],
  "positioning_summary":"string"
}`

func (r *LLMStageRunner) ExtractProblems(ctx context.Context, tc trendcontext.AssembledContext) (ProblemsOutput, StageAttemptMetrics, error) {
	out := ProblemsOutput{}
	prompt := fmt.Sprintf(
		"Problem Extraction.\n%s\n\n%s\n\nTrend context:\n%s",
		problemsPromptContext,
		problemsSchemaPrompt,
		mustJSON(tc),
	)
	m, err := r.heavy.Run(ctx, StageProblemExtraction, prompt, &out, func() error { return validateProblems(out) })
	return out, m, err
}

func (r *LLMStageRunner) AssessMaturity(ctx context.Context, tc trendcontext.AssembledContext) (MaturityOutput, StageAttemptMetrics, error) {
	out := MaturityOutput{}
	prompt := fmt.Sprintf(
		"Market Maturity Assessment.\n%s\n\n%s\n\nTrend context:\n%s",
		maturityPromptContext,
		maturitySchemaPrompt,
		mustJSON(tc),
	)
	m, err := r.light.Run(ctx, StageMarketMaturity, prompt, &out, func() error { return validateMaturity(out) })
	return out, m, err
}

func (r *LLMStageRunner) ExtractGoals(ctx context.Context, problems ProblemsOutput) (GoalsOutput, StageAttemptMetrics, error) {
	out := GoalsOutput{}
	prompt := fmt.Sprintf(
		"Goal Extraction.\nRestate the extracted problems as the user goals behind them.\n\n%s\n\nExtracted problems:\n%s",
		goalsSchemaPrompt,
		mustJSON(problems),
	)
	m, err := r.light.Run(ctx, StageGoalExtraction, prompt, &out, func() error { return validateGoals(out) })
	return out, m, err
}

func (r *LLMStageRunner) SuggestCategories(ctx context.Context, goals GoalsOutput, maturity MaturityOutput) (CategoriesOutput, StageAttemptMetrics, error) {
	out := CategoriesOutput{}
	prompt := fmt.Sprintf(
		"Feature Category Selection.\n%s\n\n%s\n\nUser goals:\n%s\n\nMarket maturity:\n%s",
		categoriesPromptContext,
		categoriesSchemaPrompt,
		mustJSON(goals),
		mustJSON(maturity),
	)
	m, err := r.light.Run(ctx, StageCategorySelection, prompt, &out, func() error { return validateCategories(out) })
	return out, m, err
}

func (r *LLMStageRunner) GenerateFeatures(ctx context.Context, tc trendcontext.AssembledContext, cats CategoriesOutput, goals GoalsOutput) (FeaturesOutput, StageAttemptMetrics, error) {
	out := FeaturesOutput{}
	prompt := fmt.Sprintf(
		"Feature Generation.\n%s\n\n%s\n\nTrend context:\n%s\n\nCategories:\n%s\n\nUser goals:\n%s",
		featuresPromptContext,
		featuresSchemaPrompt,
		mustJSON(tc),
		mustJSON(cats),
		mustJSON(goals),
	)
	m, err := r.heavy.Run(ctx, StageFeatureGeneration, prompt, &out, func() error { return validateFeatures(out) })
	return out, m, err
}

func (r *LLMStageRunner) AnalyzeCompetitorGaps(ctx context.Context, tc trendcontext.AssembledContext, features FeaturesOutput, competitors []CompetitorProfile) (CompetitorGapOutput, StageAttemptMetrics, error) {
	out := CompetitorGapOutput{}
	prompt := fmt.Sprintf(
		"Competitor Gap Analysis.\n%s\n\n%s\n\nTrend context:\n%s\n\nProposed features:\n%s\n\nCompetitors:\n%s",
		gapsPromptContext,
		gapsSchemaPrompt,
		mustJSON(tc),
		mustJSON(features),
		mustJSON(competitors),
	)
	m, err := r.heavy.Run(ctx, StageCompetitorAnalysis, prompt, &out, func() error { return validateGaps(out, competitors) })
	return out, m, err
}

func (r *LLMStageRunner) EnhanceFeatures(ctx context.Context, tc trendcontext.AssembledContext, gaps CompetitorGapOutput, features FeaturesOutput) (EnhancedFeaturesOutput, StageAttemptMetrics, error) {
	out := EnhancedFeaturesOutput{}
	prompt := fmt.Sprintf(
		"Feature Enhancement.\n%s\n\n%s\n\nTrend context:\n%s\n\nGap analysis:\n%s\n\nProposed features:\n%s",
		enhancePromptContext,
		enhanceSchemaPrompt,
		mustJSON(tc),
		mustJSON(gaps),
		mustJSON(features),
	)
	m, err := r.heavy.Run(ctx, StageFeatureEnhancement, prompt, &out, func() error { return validateEnhanced(out) })
	return out, m, err
}

func validateProblems(s ProblemsOutput) error {
	if len(s.Problems) < 1 {
		return fmt.Errorf("problems must be non-empty")
	}
	for _, p := range s.Problems {
		if strings.TrimSpace(p.Problem) == "" {
			return fmt.Errorf("problem text required")
		}
		if strings.TrimSpace(p.Evidence) == "" {
			return fmt.Errorf("evidence required")
		}
		if p.Severity < 1 || p.Severity > 10 {
			return fmt.Errorf("severity out of range")
		}
	}
	if strings.TrimSpace(s.AnalysisSummary) == "" {
		return fmt.Errorf("analysis_summary required")
	}
	return nil
}

func validateMaturity(s MaturityOutput) error {
	switch s.Stage {
	case MaturityEarly, MaturityMid, MaturitySaturated:
	default:
		return fmt.Errorf("invalid stage")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence out of range")
	}
	if strings.TrimSpace(s.Reasoning) == "" {
		return fmt.Errorf("reasoning required")
	}
	return nil
}

func validateGoals(s GoalsOutput) error {
	if len(s.Goals) < 2 || len(s.Goals) > 5 {
		return fmt.Errorf("goals must have 2-5 entries")
	}
	for _, g := range s.Goals {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("goal text required")
		}
	}
	return nil
}

func validateCategories(s CategoriesOutput) error {
	if len(s.Categories) < 1 {
		return fmt.Errorf("categories must be non-empty")
	}
	found := false
	for _, c := range s.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("category name required")
		}
		if strings.TrimSpace(c.Rationale) == "" {
			return fmt.Errorf("category rationale required")
		}
		if c.Name == s.RecommendedCategory {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("recommended_category must match a category name")
	}
	return nil
}

func validateFeatures(s FeaturesOutput) error {
	if len(s.Features) < 1 {
		return fmt.Errorf("features must be non-empty")
	}
	names := map[string]struct{}{}
	for _, f := range s.Features {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("feature name required")
		}
		if strings.TrimSpace(f.Description) == "" {
			return fmt.Errorf("feature description required")
		}
		if strings.TrimSpace(f.ProblemSolved) == "" {
			return fmt.Errorf("problem_solved required")
		}
		names[f.Name] = struct{}{}
	}
	for _, n := range s.PriorityRanking {
		if _, ok := names[n]; !ok {
			return fmt.Errorf("priority_ranking names unknown feature %q", n)
		}
	}
	for _, n := range s.MVPFeatures {
		if _, ok := names[n]; !ok {
			return fmt.Errorf("mvp_features names unknown feature %q", n)
		}
	}
	if len(s.MVPFeatures) < 1 {
		return fmt.Errorf("mvp_features must be non-empty")
	}
	return nil
}

func validateGaps(s CompetitorGapOutput, competitors []CompetitorProfile) error {
	known := map[string]struct{}{}
	for _, c := range competitors {
		known[strings.ToLower(c.Name)] = struct{}{}
	}
	for _, g := range s.Gaps {
		if strings.TrimSpace(g.Gap) == "" {
			return fmt.Errorf("gap text required")
		}
		if strings.TrimSpace(g.Opportunity) == "" {
			return fmt.Errorf("opportunity required")
		}
		if g.Competitor != "" {
			if _, ok := known[strings.ToLower(g.Competitor)]; !ok {
				return fmt.Errorf("unknown competitor %q", g.Competitor)
			}
		}
	}
	return nil
}

func validateEnhanced(s EnhancedFeaturesOutput) error {
	if len(s.Features) < 1 {
		return fmt.Errorf("features must be non-empty")
	}
	for _, f := range s.Features {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("feature name required")
		}
		if strings.TrimSpace(f.Description) == "" {
			return fmt.Errorf("feature description required")
		}
	}
	if strings.TrimSpace(s.PositioningSummary) == "" {
		return fmt.Errorf("positioning_summary required")
	}
	return nil
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
