package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func completeResult(t *testing.T) PipelineResult {
	t.Helper()
	m := newMockRunner()
	p := basePipeline(m, &staticCompetitors{found: []CompetitorProfile{{Name: "Acme", URL: "https://acme.example", Summary: "incumbent"}}})
	res, err := p.Run(context.Background(), RequestEnvelope{Keyword: "smart thermostat", IncludeCompetitors: true})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestBuildResponseComplete(t *testing.T) {
	env := BuildResponse(completeResult(t))
	if env.Keyword != "smart thermostat" {
		t.Fatalf("keyword: %q", env.Keyword)
	}
	if env.ReportMode != ReportModeComplete {
		t.Fatalf("mode: %s", env.ReportMode)
	}
	for _, stage := range []string{
		StageProblemExtraction, StageMarketMaturity, StageGoalExtraction,
		StageCategorySelection, StageFeatureGeneration, StageCompetitorAnalysis, StageFeatureEnhancement,
	} {
		if _, ok := env.StageOutputs[stage]; !ok {
			t.Fatalf("stage outputs missing %s", stage)
		}
	}
	if env.Disclaimer == "" {
		t.Fatal("disclaimer required")
	}
	if !env.DataQuality.HasInterestData {
		t.Fatal("data quality should carry through")
	}
	if env.SummaryInsights.MarketTrend == nil {
		t.Fatal("summary insights should carry through")
	}

	md := env.ReportMarkdown
	for _, want := range []string{
		"# Trend Analysis Report",
		"## Data Quality",
		"## User Problems",
		"installation is confusing",
		"## Market Maturity",
		"## Proposed Features",
		"Wiring Scanner",
		"## Competitor Gaps",
		"Acme",
		"## Enhanced Features",
		"## Pipeline Audit",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q", want)
		}
	}
}

func TestBuildResponseDegraded(t *testing.T) {
	m := newMockRunner()
	m.err[StageFeatureGeneration] = errors.New("generation failed")
	p := basePipeline(m, nil)
	res, err := p.Run(context.Background(), RequestEnvelope{Keyword: "smart thermostat"})
	if err != nil {
		t.Fatal(err)
	}
	env := BuildResponse(res)
	if env.ReportMode != ReportModeDegraded {
		t.Fatalf("mode: %s", env.ReportMode)
	}
	if _, ok := env.StageOutputs[StageFeatureGeneration]; ok {
		t.Fatal("failed stage should not appear in outputs")
	}
	if _, ok := env.StageOutputs[StageGoalExtraction]; !ok {
		t.Fatal("earlier stages should appear in outputs")
	}
	if !strings.Contains(env.ReportMarkdown, "DEGRADED") {
		t.Fatal("markdown should flag degraded mode")
	}
	if !strings.Contains(env.ReportMarkdown, StageFeatureGeneration) {
		t.Fatal("markdown should name the failed stage")
	}
}

func TestSanitizeCellEscapesTables(t *testing.T) {
	if got := sanitizeCell("a|b\nc"); got != "a\\|b c" {
		t.Fatalf("got %q", got)
	}
}
