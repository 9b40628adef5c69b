package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/jamiesonbates/trendscout/internal/trendcontext"
)

type queueCaller struct {
	responses []string
	prompts   []string
}

func (q *queueCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	q.prompts = append(q.prompts, prompt)
	if len(q.responses) == 0 {
		return "{}", nil
	}
	out := q.responses[0]
	q.responses = q.responses[1:]
	return out, nil
}

func newRunnerWith(q *queueCaller) *LLMStageRunner {
	exec := NewStageExecutor(q)
	return NewLLMStageRunner(exec, exec)
}

func testContext(t *testing.T, task trendcontext.Task) trendcontext.AssembledContext {
	t.Helper()
	b := trendcontext.NewBuilder(trendcontext.DefaultConfig())
	prepared, err := b.Prepare(baseRaw())
	if err != nil {
		t.Fatal(err)
	}
	tc, err := prepared.ContextFor(task)
	if err != nil {
		t.Fatal(err)
	}
	return tc
}

func TestExtractProblemsHappyRetryFailure(t *testing.T) {
	valid := `{"problems":[{"problem":"confusing install","evidence":"install problem queries","severity":7}],"analysis_summary":"install pain dominates"}`

	t.Run("happy", func(t *testing.T) {
		q := &queueCaller{responses: []string{valid}}
		r := newRunnerWith(q)
		out, m, err := r.ExtractProblems(context.Background(), testContext(t, trendcontext.TaskProblemExtraction))
		if err != nil {
			t.Fatalf("ExtractProblems: %v", err)
		}
		if m.Attempts != 1 {
			t.Fatalf("expected 1 attempt, got %d", m.Attempts)
		}
		if len(out.Problems) != 1 || out.Problems[0].Severity != 7 {
			t.Fatalf("unexpected output: %+v", out)
		}
		if len(q.prompts) != 1 || !strings.Contains(q.prompts[0], "Required JSON schema") {
			t.Fatal("expected schema prompt")
		}
		if !strings.Contains(q.prompts[0], "smart thermostat install problem") {
			t.Fatal("expected the trend context in the prompt")
		}
	})

	t.Run("retry", func(t *testing.T) {
		q := &queueCaller{responses: []string{"not-json", valid}}
		r := newRunnerWith(q)
		_, m, err := r.ExtractProblems(context.Background(), testContext(t, trendcontext.TaskProblemExtraction))
		if err != nil {
			t.Fatalf("retry path: %v", err)
		}
		if m.Attempts != 2 || m.ContentRetries != 1 {
			t.Fatalf("expected attempts=2 content_retries=1, got %+v", m)
		}
		if !strings.Contains(q.prompts[1], "was not valid JSON") {
			t.Fatal("retry prompt should carry feedback")
		}
	})

	t.Run("failure", func(t *testing.T) {
		q := &queueCaller{responses: []string{"{}", "{}", "{}"}}
		r := newRunnerWith(q)
		_, m, err := r.ExtractProblems(context.Background(), testContext(t, trendcontext.TaskProblemExtraction))
		if err == nil {
			t.Fatal("expected validation failure after retries")
		}
		if m.Attempts != 3 {
			t.Fatalf("expected 3 attempts, got %d", m.Attempts)
		}
	})
}

func TestAssessMaturityValidation(t *testing.T) {
	cases := []struct {
		name string
		resp string
		ok   bool
	}{
		{"valid", `{"stage":"early","confidence":0.7,"reasoning":"low base, accelerating"}`, true},
		{"bad stage", `{"stage":"booming","confidence":0.7,"reasoning":"x"}`, false},
		{"confidence out of range", `{"stage":"mid","confidence":1.4,"reasoning":"x"}`, false},
		{"missing reasoning", `{"stage":"mid","confidence":0.5,"reasoning":""}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &queueCaller{responses: []string{tc.resp, tc.resp, tc.resp}}
			r := newRunnerWith(q)
			_, _, err := r.AssessMaturity(context.Background(), testContext(t, trendcontext.TaskMarketMaturity))
			if tc.ok && err != nil {
				t.Fatalf("expected success: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSuggestCategoriesRecommendationMustMatch(t *testing.T) {
	bad := `{"categories":[{"name":"guided setup","rationale":"install pain"}],"recommended_category":"something else"}`
	good := `{"categories":[{"name":"guided setup","rationale":"install pain"}],"recommended_category":"guided setup"}`
	q := &queueCaller{responses: []string{bad, good}}
	r := newRunnerWith(q)
	out, m, err := r.SuggestCategories(context.Background(),
		GoalsOutput{Goals: []string{"a", "b"}},
		MaturityOutput{Stage: MaturityMid, Confidence: 0.8, Reasoning: "r"})
	if err != nil {
		t.Fatal(err)
	}
	if m.ContentRetries != 1 {
		t.Fatalf("mismatched recommendation should retry, got %+v", m)
	}
	if out.RecommendedCategory != "guided setup" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestGenerateFeaturesRejectsUnknownRankingNames(t *testing.T) {
	bad := `{"features":[{"name":"A","description":"d","problem_solved":"p","differentiator":"x"}],"priority_ranking":["B"],"mvp_features":["A"],"advanced_features":[],"technical_considerations":[]}`
	q := &queueCaller{responses: []string{bad, bad, bad}}
	r := newRunnerWith(q)
	_, _, err := r.GenerateFeatures(context.Background(), testContext(t, trendcontext.TaskFeatureGeneration),
		CategoriesOutput{Categories: []FeatureCategory{{Name: "c", Rationale: "r"}}, RecommendedCategory: "c"},
		GoalsOutput{Goals: []string{"a", "b"}})
	if err == nil || !strings.Contains(err.Error(), "unknown feature") {
		t.Fatalf("expected unknown-feature validation error, got %v", err)
	}
}

func TestAnalyzeCompetitorGapsRejectsUnknownCompetitor(t *testing.T) {
	bad := `{"gaps":[{"competitor":"Nobody","gap":"g","opportunity":"o"}],"unserved_needs":[]}`
	q := &queueCaller{responses: []string{bad, bad, bad}}
	r := newRunnerWith(q)
	_, _, err := r.AnalyzeCompetitorGaps(context.Background(), testContext(t, trendcontext.TaskCompetitorAnalysis),
		baseFeatures(), []CompetitorProfile{{Name: "Acme"}})
	if err == nil || !strings.Contains(err.Error(), "unknown competitor") {
		t.Fatalf("expected unknown-competitor validation error, got %v", err)
	}
}

func TestEnhanceFeaturesFencedResponse(t *testing.T) {
	fenced := "```json\n{\"features\":[{\"name\":\"A\",\"description\":\"d\",\"enhancement\":\"e\"}],\"positioning_summary\":\"p\"}\n```"
	q := &queueCaller{responses: []string{fenced}}
	r := newRunnerWith(q)
	out, m, err := r.EnhanceFeatures(context.Background(), testContext(t, trendcontext.TaskFeatureEnhancement),
		CompetitorGapOutput{}, baseFeatures())
	if err != nil {
		t.Fatal(err)
	}
	if m.Attempts != 1 {
		t.Fatalf("fenced JSON should parse on first attempt, got %+v", m)
	}
	if out.PositioningSummary != "p" {
		t.Fatalf("unexpected output: %+v", out)
	}
}
