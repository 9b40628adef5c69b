package runstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jamiesonbates/trendscout/internal/analysis"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func envFor(keyword string, mode analysis.ReportMode) analysis.ResponseEnvelope {
	return analysis.ResponseEnvelope{
		Keyword:        keyword,
		ReportMode:     mode,
		ReportMarkdown: "# Trend Analysis Report",
		StageOutputs:   map[string]any{"problem_extraction": map[string]any{"analysis_summary": "x"}},
		Disclaimer:     analysis.Disclaimer,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	id, err := s.SaveRun(envFor("widgets", analysis.ReportModeComplete))
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetRun(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Keyword != "widgets" || got.ReportMode != analysis.ReportModeComplete {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.ReportMarkdown != "# Trend Analysis Report" {
		t.Fatalf("markdown lost: %q", got.ReportMarkdown)
	}
}

func TestLatestByKeyword(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.SaveRun(envFor("widgets", analysis.ReportModeDegraded)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveRun(envFor("widgets", analysis.ReportModeComplete)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveRun(envFor("gadgets", analysis.ReportModeComplete)); err != nil {
		t.Fatal(err)
	}

	got, err := s.LatestByKeyword("widgets")
	if err != nil {
		t.Fatal(err)
	}
	if got.ReportMode != analysis.ReportModeComplete {
		t.Fatalf("expected the newer run, got %+v", got.ReportMode)
	}

	_, err = s.LatestByKeyword("nothing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	for _, kw := range []string{"a", "b", "c"} {
		if _, err := s.SaveRun(envFor(kw, analysis.ReportModeComplete)); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Keyword != "c" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
	all, err := s.ListRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all runs with default limit, got %d", len(all))
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRun(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
