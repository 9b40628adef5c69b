package analysis

import (
	"time"

	"github.com/jamiesonbates/trendscout/internal/trendcontext"
)

const Disclaimer = "This is an automated market and feature analysis derived from search-trend signals, " +
	"not market research or investment advice. Generated insights reflect limited public data."

const (
	CapabilityTrendAnalysis = "trend-analysis-pipeline"
	MaxKeywordChars         = 100
)

type ReportMode string

const (
	ReportModeComplete ReportMode = "COMPLETE"
	ReportModeDegraded ReportMode = "DEGRADED"
)

type MaturityStage string

const (
	MaturityEarly     MaturityStage = "early"
	MaturityMid       MaturityStage = "mid"
	MaturitySaturated MaturityStage = "saturated"
)

type RequestEnvelope struct {
	Keyword            string `json:"keyword"`
	IncludeCompetitors bool   `json:"include_competitors"`
}

type PipelineMetadata struct {
	StagesExecuted      []string       `json:"stages_executed"`
	StagesSkipped       []string       `json:"stages_skipped"`
	StageFailed         string         `json:"stage_failed,omitempty"`
	StartedAt           time.Time      `json:"started_at"`
	CompletedAt         time.Time      `json:"completed_at"`
	Mode                ReportMode     `json:"mode"`
	DegradedReason      string         `json:"degraded_reason,omitempty"`
	TotalLLMCalls       int            `json:"total_llm_calls"`
	TotalRetries        int            `json:"total_retries"`
	StageAttempts       map[string]int `json:"stage_attempts,omitempty"`
	StageContentRetries map[string]int `json:"stage_content_retries,omitempty"`
}

type ResponseEnvelope struct {
	Keyword          string                         `json:"keyword"`
	ReportMode       ReportMode                     `json:"report_mode"`
	ReportMarkdown   string                         `json:"report_markdown"`
	StageOutputs     map[string]any                 `json:"stage_outputs"`
	DataQuality      trendcontext.QualityAssessment `json:"data_quality"`
	SummaryInsights  trendcontext.SummaryInsights   `json:"summary_insights"`
	PipelineMetadata PipelineMetadata               `json:"pipeline_metadata"`
	Disclaimer       string                         `json:"disclaimer"`
}

type StageAttemptMetrics struct {
	Attempts       int
	ContentRetries int
}

type UserProblem struct {
	Problem  string `json:"problem"`
	Evidence string `json:"evidence"`
	Severity int    `json:"severity"`
}

type ProblemsOutput struct {
	Problems        []UserProblem `json:"problems"`
	AnalysisSummary string        `json:"analysis_summary"`
}

type MaturityOutput struct {
	Stage      MaturityStage `json:"stage"`
	Confidence float64       `json:"confidence"`
	Reasoning  string        `json:"reasoning"`
}

type GoalsOutput struct {
	Goals []string `json:"goals"`
}

type FeatureCategory struct {
	Name      string `json:"name"`
	Rationale string `json:"rationale"`
}

type CategoriesOutput struct {
	Categories          []FeatureCategory `json:"categories"`
	RecommendedCategory string            `json:"recommended_category"`
}

type InnovativeFeature struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	ProblemSolved  string `json:"problem_solved"`
	Differentiator string `json:"differentiator"`
}

type FeaturesOutput struct {
	Features                []InnovativeFeature `json:"features"`
	PriorityRanking         []string            `json:"priority_ranking"`
	MVPFeatures             []string            `json:"mvp_features"`
	AdvancedFeatures        []string            `json:"advanced_features"`
	TechnicalConsiderations []string            `json:"technical_considerations"`
}

type CompetitorGap struct {
	Competitor  string `json:"competitor"`
	Gap         string `json:"gap"`
	Opportunity string `json:"opportunity"`
}

type CompetitorGapOutput struct {
	Gaps          []CompetitorGap `json:"gaps"`
	UnservedNeeds []string        `json:"unserved_needs"`
}

type EnhancedFeature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enhancement string `json:"enhancement"`
}

type EnhancedFeaturesOutput struct {
	Features           []EnhancedFeature `json:"features"`
	PositioningSummary string            `json:"positioning_summary"`
}

// CompetitorProfile is what the web-search layer returns per competitor.
type CompetitorProfile struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

type PipelineResult struct {
	Request     RequestEnvelope
	Prepared    *trendcontext.Prepared
	Problems    ProblemsOutput
	Maturity    *MaturityOutput
	Goals       *GoalsOutput
	Categories  *CategoriesOutput
	Features    *FeaturesOutput
	Competitors []CompetitorProfile
	Gaps        *CompetitorGapOutput
	Enhanced    *EnhancedFeaturesOutput
	Attempts    map[string]StageAttemptMetrics
	Metadata    PipelineMetadata
}
