package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/jamiesonbates/trendscout/internal/trendcontext"
)

func BuildResponse(result PipelineResult) ResponseEnvelope {
	env := ResponseEnvelope{
		Keyword:          result.Request.Keyword,
		ReportMode:       result.Metadata.Mode,
		StageOutputs:     map[string]any{},
		PipelineMetadata: result.Metadata,
		Disclaimer:       Disclaimer,
	}
	if result.Prepared != nil {
		env.DataQuality = result.Prepared.Quality
	}
	env.StageOutputs[StageProblemExtraction] = result.Problems
	if result.Maturity != nil {
		env.StageOutputs[StageMarketMaturity] = result.Maturity
	}
	if result.Goals != nil {
		env.StageOutputs[StageGoalExtraction] = result.Goals
	}
	if result.Categories != nil {
		env.StageOutputs[StageCategorySelection] = result.Categories
	}
	if result.Features != nil {
		env.StageOutputs[StageFeatureGeneration] = result.Features
	}
	if result.Gaps != nil {
		env.StageOutputs[StageCompetitorAnalysis] = result.Gaps
	}
	if result.Enhanced != nil {
		env.StageOutputs[StageFeatureEnhancement] = result.Enhanced
	}
	if result.Prepared != nil {
		// The summary block is task-independent; any task's assembled
		// context carries the same one.
		if tc, err := result.Prepared.ContextFor(trendcontext.TaskMarketMaturity); err == nil {
			env.SummaryInsights = tc.SummaryInsights
		}
	}
	env.ReportMarkdown = buildMarkdown(result, env.SummaryInsights)
	return env
}

func buildMarkdown(result PipelineResult, summary trendcontext.SummaryInsights) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trend Analysis Report\n\n")
	fmt.Fprintf(&b, "- Keyword: %s\n", sanitize(result.Request.Keyword))
	fmt.Fprintf(&b, "- Date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Mode: %s\n\n", result.Metadata.Mode)
	fmt.Fprintf(&b, "%s\n\n", Disclaimer)

	if result.Metadata.Mode == ReportModeDegraded {
		fmt.Fprintf(&b, "> DEGRADED: Stage `%s` failed. Sections below the failure point are missing; treat this as a partial analysis.\n\n", sanitize(result.Metadata.StageFailed))
	}

	fmt.Fprintf(&b, "## Data Quality\n\n")
	if result.Prepared != nil {
		q := result.Prepared.Quality
		fmt.Fprintf(&b, "- Completeness: %.0f%%\n", q.CompletenessScore*100)
		fmt.Fprintf(&b, "- Interest-over-time data: %s\n", yesNo(q.HasInterestData))
		fmt.Fprintf(&b, "- Related queries: %s\n", yesNo(q.HasRelatedQueries))
		fmt.Fprintf(&b, "- Rising searches: %s\n", yesNo(q.HasRisingSearches))
		for _, r := range q.Recommendations {
			fmt.Fprintf(&b, "- [!] %s\n", sanitize(r))
		}
		fmt.Fprintf(&b, "\n")
	}

	if summary.MarketTrend != nil {
		fmt.Fprintf(&b, "## Market Signal\n\n")
		fmt.Fprintf(&b, "- Trend direction: `%s`\n", summary.MarketTrend.Direction)
		fmt.Fprintf(&b, "- Volatility: %s\n", summary.MarketTrend.VolatilityLevel)
		fmt.Fprintf(&b, "- Interest level: %s\n", summary.MarketTrend.InterestLevel)
		if len(summary.ClusterThemes) > 0 {
			fmt.Fprintf(&b, "- Demand themes: %s\n", strings.Join(summary.ClusterThemes, ", "))
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## User Problems\n\n")
	if len(result.Problems.Problems) > 0 {
		fmt.Fprintf(&b, "%s\n\n", sanitize(result.Problems.AnalysisSummary))
		fmt.Fprintf(&b, "| Problem | Severity | Evidence |\n|---------|----------|----------|\n")
		for _, p := range result.Problems.Problems {
			fmt.Fprintf(&b, "| %s | %d/10 | %s |\n", sanitizeCell(p.Problem), p.Severity, sanitizeCell(p.Evidence))
		}
		fmt.Fprintf(&b, "\n")
	} else {
		fmt.Fprintf(&b, "No problems extracted.\n\n")
	}

	if result.Maturity != nil {
		fmt.Fprintf(&b, "## Market Maturity\n\n")
		fmt.Fprintf(&b, "- Stage: `%s` (confidence %.0f%%)\n", result.Maturity.Stage, result.Maturity.Confidence*100)
		fmt.Fprintf(&b, "- %s\n\n", sanitize(result.Maturity.Reasoning))
	}

	if result.Goals != nil {
		fmt.Fprintf(&b, "## User Goals\n\n")
		for _, g := range result.Goals.Goals {
			fmt.Fprintf(&b, "- %s\n", sanitize(g))
		}
		fmt.Fprintf(&b, "\n")
	}

	if result.Categories != nil {
		fmt.Fprintf(&b, "## Feature Categories\n\n")
		fmt.Fprintf(&b, "Recommended: **%s**\n\n", sanitize(result.Categories.RecommendedCategory))
		for _, c := range result.Categories.Categories {
			fmt.Fprintf(&b, "- **%s** — %s\n", sanitize(c.Name), sanitize(c.Rationale))
		}
		fmt.Fprintf(&b, "\n")
	}

	if result.Features != nil {
		fmt.Fprintf(&b, "## Proposed Features\n\n")
		for _, f := range result.Features.Features {
			fmt.Fprintf(&b, "### %s\n\n", sanitize(f.Name))
			fmt.Fprintf(&b, "%s\n\n", sanitize(f.Description))
			fmt.Fprintf(&b, "- Solves: %s\n", sanitize(f.ProblemSolved))
			if f.Differentiator != "" {
				fmt.Fprintf(&b, "- Differentiator: %s\n", sanitize(f.Differentiator))
			}
			fmt.Fprintf(&b, "\n")
		}
		if len(result.Features.MVPFeatures) > 0 {
			fmt.Fprintf(&b, "**MVP set**: %s\n\n", strings.Join(sanitizeAll(result.Features.MVPFeatures), ", "))
		}
		if len(result.Features.AdvancedFeatures) > 0 {
			fmt.Fprintf(&b, "**Advanced**: %s\n\n", strings.Join(sanitizeAll(result.Features.AdvancedFeatures), ", "))
		}
		if len(result.Features.TechnicalConsiderations) > 0 {
			fmt.Fprintf(&b, "**Technical considerations**:\n\n")
			for _, tcon := range result.Features.TechnicalConsiderations {
				fmt.Fprintf(&b, "- %s\n", sanitize(tcon))
			}
			fmt.Fprintf(&b, "\n")
		}
	}

	if result.Gaps != nil {
		fmt.Fprintf(&b, "## Competitor Gaps\n\n")
		if len(result.Competitors) > 0 {
			fmt.Fprintf(&b, "Competitors reviewed: ")
			names := make([]string, len(result.Competitors))
			for i, c := range result.Competitors {
				names[i] = sanitize(c.Name)
			}
			fmt.Fprintf(&b, "%s\n\n", strings.Join(names, ", "))
		}
		for _, g := range result.Gaps.Gaps {
			if g.Competitor != "" {
				fmt.Fprintf(&b, "- **%s**: %s → %s\n", sanitize(g.Competitor), sanitize(g.Gap), sanitize(g.Opportunity))
			} else {
				fmt.Fprintf(&b, "- %s → %s\n", sanitize(g.Gap), sanitize(g.Opportunity))
			}
		}
		if len(result.Gaps.UnservedNeeds) > 0 {
			fmt.Fprintf(&b, "\n**Unserved needs**: %s\n", strings.Join(sanitizeAll(result.Gaps.UnservedNeeds), "; "))
		}
		fmt.Fprintf(&b, "\n")
	}

	if result.Enhanced != nil {
		fmt.Fprintf(&b, "## Enhanced Features\n\n")
		for _, f := range result.Enhanced.Features {
			fmt.Fprintf(&b, "### %s\n\n", sanitize(f.Name))
			fmt.Fprintf(&b, "%s\n\n", sanitize(f.Description))
			if f.Enhancement != "" {
				fmt.Fprintf(&b, "- Enhancement: %s\n\n", sanitize(f.Enhancement))
			}
		}
		fmt.Fprintf(&b, "**Positioning**: %s\n\n", sanitize(result.Enhanced.PositioningSummary))
	}

	fmt.Fprintf(&b, "---\n\n")
	fmt.Fprintf(&b, "## Pipeline Audit\n\n")
	fmt.Fprintf(&b, "- Stages executed: %s\n", strings.Join(result.Metadata.StagesExecuted, ", "))
	if len(result.Metadata.StagesSkipped) > 0 {
		fmt.Fprintf(&b, "- Stages skipped: %s\n", strings.Join(result.Metadata.StagesSkipped, ", "))
	}
	fmt.Fprintf(&b, "- Generation calls: %d (retries: %d)\n", result.Metadata.TotalLLMCalls, result.Metadata.TotalRetries)
	return b.String()
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}

func sanitizeCell(s string) string {
	s = sanitize(s)
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func sanitizeAll(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = sanitize(s)
	}
	return out
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
