package trendcontext

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func rawFixture() RawTrendsRecord {
	raw := RawTrendsRecord{
		Keyword: "smart thermostat",
		TopQueries: []QueryEntry{
			{Query: "smart thermostat installation problem", Value: 100},
			{Query: "Smart  Thermostat installation problem", Value: 90},
			{Query: "smart thermostat price", Value: 80},
			{Query: "thermostat wiring guide", Value: 70},
		},
		RisingQueries: []QueryEntry{
			{Query: "smart thermostat not working", Value: 250},
			{Query: "thermostat wiring error", Value: 180},
		},
		Regions: []RegionInterest{{Region: "US", Interest: 100}},
	}
	values := []float64{10, 12, 11, 9, 40, 55, 60, 58, 62, 65, 70, 75}
	dates := []string{
		"2025-01-01", "2025-02-01", "2025-03-01", "2025-04-01",
		"2025-05-01", "2025-06-01", "2025-07-01", "2025-08-01",
		"2025-09-01", "2025-10-01", "2025-11-01", "2025-12-01",
	}
	for i, v := range values {
		raw.InterestOverTime = append(raw.InterestOverTime, InterestPoint{Date: dates[i], Interest: v})
	}
	return raw
}

func TestPrepareRejectsMissingKeyword(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	_, err := b.Prepare(RawTrendsRecord{})
	if err == nil {
		t.Fatal("expected error for record without keyword")
	}
	var malformed *MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedRecordError, got %T", err)
	}
	if malformed.Field != "keyword" {
		t.Fatalf("error should name the missing field, got %q", malformed.Field)
	}
}

func TestEndToEndAllTasks(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	prepared, err := b.Prepare(rawFixture())
	if err != nil {
		t.Fatal(err)
	}

	if prepared.Insights.Direction != DirectionRising {
		t.Fatalf("expected rising direction, got %s", prepared.Insights.Direction)
	}
	if prepared.Quality.CompletenessScore != 1.0 {
		t.Fatalf("expected full completeness, got %v", prepared.Quality.CompletenessScore)
	}
	// Near-duplicate top query collapses under normalization.
	if len(prepared.Clean.TopQueries) != 3 {
		t.Fatalf("expected 3 deduplicated top queries, got %+v", prepared.Clean.TopQueries)
	}

	o := NewOptimizer(DefaultConfig())
	for _, task := range Tasks() {
		ac, err := prepared.ContextFor(task)
		if err != nil {
			t.Fatalf("%s: %v", task, err)
		}
		if ac.Keyword != "smart thermostat" {
			t.Fatalf("%s: keyword lost: %q", task, ac.Keyword)
		}
		if ac.OptimizedData.Task != task {
			t.Fatalf("%s: view labeled %q", task, ac.OptimizedData.Task)
		}
		if got, bound := ac.OptimizedData.ElementCount(), o.Bound(task); got > bound {
			t.Fatalf("%s: element count %d exceeds bound %d", task, got, bound)
		}
		if !reflect.DeepEqual(ac.DataQuality, prepared.Quality) {
			t.Fatalf("%s: quality assessment should be identical across tasks", task)
		}
	}
}

func TestEndToEndSummaryInsights(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	prepared, err := b.Prepare(rawFixture())
	if err != nil {
		t.Fatal(err)
	}
	ac, err := prepared.ContextFor(TaskMarketMaturity)
	if err != nil {
		t.Fatal(err)
	}
	s := ac.SummaryInsights
	if !s.ProblemLandscape.HasPainPoints {
		t.Fatal("fixture has problem queries; expected pain points")
	}
	// 4 of 5 surviving queries match the lexicon ("problem" x2, "guide",
	// "not working", "error"); only "smart thermostat price" does not.
	if s.ProblemLandscape.ProblemDensity != 0.8 {
		t.Fatalf("expected problem density 0.8, got %v", s.ProblemLandscape.ProblemDensity)
	}
	if s.MarketTrend == nil {
		t.Fatal("expected market trend summary")
	}
	if s.MarketTrend.Direction != DirectionRising {
		t.Fatalf("expected rising, got %s", s.MarketTrend.Direction)
	}
	if s.MarketTrend.VolatilityLevel != "high" {
		t.Fatalf("step change should read as high volatility, got %q", s.MarketTrend.VolatilityLevel)
	}
	if s.MarketTrend.InterestLevel != "low" {
		t.Fatalf("mean ~43 should read as low interest, got %q", s.MarketTrend.InterestLevel)
	}
	if len(s.ClusterThemes) == 0 || len(s.ClusterThemes) > 3 {
		t.Fatalf("expected 1..3 cluster themes, got %v", s.ClusterThemes)
	}
}

func TestAssembledContextJSONShape(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	prepared, err := b.Prepare(rawFixture())
	if err != nil {
		t.Fatal(err)
	}
	ac, err := prepared.ContextFor(TaskProblemExtraction)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(ac)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"keyword", "optimized_data", "data_quality", "summary_insights"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("payload missing %q: %s", key, data)
		}
	}
	var quality map[string]json.RawMessage
	if err := json.Unmarshal(decoded["data_quality"], &quality); err != nil {
		t.Fatal(err)
	}
	if _, ok := quality["data_completeness_score"]; !ok {
		t.Fatalf("quality missing completeness score: %s", decoded["data_quality"])
	}
}

func TestContextForUnknownTask(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	prepared, err := b.Prepare(rawFixture())
	if err != nil {
		t.Fatal(err)
	}
	_, err = prepared.ContextFor(Task("fabricated"))
	var invalid *InvalidTaskError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidTaskError, got %v", err)
	}
}
