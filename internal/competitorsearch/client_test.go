package competitorsearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const resultsBody = `{
  "results": [
    {"title": "Acme Thermostat", "url": "https://acme.example", "content": "Acme sells a learning thermostat."},
    {"title": "acme thermostat", "url": "https://mirror.example", "content": "duplicate listing"},
    {"title": "", "url": "https://blank.example", "content": "no title"},
    {"title": "Globex Home", "url": "https://globex.example", "content": "Globex makes smart home hubs."}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFindCompetitorsDedupsAndSkipsBlank(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.APIKey != "test-key" {
			t.Errorf("missing api key")
		}
		if !strings.Contains(req.Query, "smart thermostat") {
			t.Errorf("query should include the keyword: %q", req.Query)
		}
		w.Write([]byte(resultsBody))
	})

	found, err := c.FindCompetitors(context.Background(), "smart thermostat")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 competitors after dedup, got %+v", found)
	}
	if found[0].Name != "Acme Thermostat" || found[1].Name != "Globex Home" {
		t.Fatalf("wrong competitors: %+v", found)
	}
	if found[0].Summary == "" {
		t.Fatal("summary should carry content")
	}
}

func TestFindCompetitorsMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultsBody))
	}))
	defer srv.Close()
	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, MaxResults: 1, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatal(err)
	}
	found, err := c.FindCompetitors(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Fatalf("expected cap of 1, got %d", len(found))
	}
}

func TestFindCompetitorsAuthFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.FindCompetitors(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "TAVILY_API_KEY") {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestFindCompetitorsEmptyResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})
	if _, err := c.FindCompetitors(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty results")
	}
}

func TestSummarizeTruncates(t *testing.T) {
	long := strings.Repeat("word ", 200)
	got := summarize(long)
	if len(got) > 410 {
		t.Fatalf("summary too long: %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatal("truncated summary should end with ellipsis")
	}
}
