package trendsource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
)

const timeseriesBody = `{
  "interest_over_time": {"timeline_data": [
    {"date": "Jan 5, 2025", "values": [{"extracted_value": 42}]},
    {"date": "Jan 12, 2025", "values": [{"extracted_value": 58}]},
    {"date": "Jan 19, 2025", "values": []}
  ]},
  "interest_by_region": [{"location": "United States", "extracted_value": 87}]
}`

const relatedBody = `{
  "related_queries": {
    "top": [{"query": "smart thermostat install", "extracted_value": 90}],
    "rising": [{"query": "smart thermostat not working", "extracted_value": 250}]
  },
  "related_topics": {"top": [{"topic": {"title": "Home automation"}}]}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := logrus.New()
	log.SetOutput(io.Discard)
	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client(), Logger: log})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFetchTrendsMergesBothRequests(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("missing api key")
		}
		if r.URL.Query().Get("engine") != "google_trends" {
			t.Errorf("wrong engine: %q", r.URL.Query().Get("engine"))
		}
		switch r.URL.Query().Get("data_type") {
		case "TIMESERIES":
			w.Write([]byte(timeseriesBody))
		case "RELATED_QUERIES":
			w.Write([]byte(relatedBody))
		default:
			t.Errorf("unexpected data_type %q", r.URL.Query().Get("data_type"))
		}
	})

	record, err := c.FetchTrends(context.Background(), "smart thermostat")
	if err != nil {
		t.Fatal(err)
	}
	if record.Keyword != "smart thermostat" {
		t.Fatalf("keyword: %q", record.Keyword)
	}
	// The valueless third point is dropped at fetch time.
	if len(record.InterestOverTime) != 2 {
		t.Fatalf("expected 2 interest points, got %d", len(record.InterestOverTime))
	}
	if record.InterestOverTime[1].Interest != 58 {
		t.Fatalf("wrong value: %v", record.InterestOverTime[1].Interest)
	}
	if record.InterestOverTime[0].Date != "2025-01-05" {
		t.Fatalf("date not normalized: %q", record.InterestOverTime[0].Date)
	}
	if len(record.TopQueries) != 1 || record.TopQueries[0].Query != "smart thermostat install" {
		t.Fatalf("top queries: %+v", record.TopQueries)
	}
	if len(record.RisingQueries) != 1 || record.RisingQueries[0].Value != 250 {
		t.Fatalf("rising queries: %+v", record.RisingQueries)
	}
	if len(record.Regions) != 1 || record.Regions[0].Region != "United States" {
		t.Fatalf("regions: %+v", record.Regions)
	}
	if record.Regions[0].Interest != 87.0 {
		t.Fatalf("region interest: %v", record.Regions[0].Interest)
	}
	if len(record.RelatedTopics) != 1 || record.RelatedTopics[0] != "Home automation" {
		t.Fatalf("topics: %+v", record.RelatedTopics)
	}
}

func TestFetchTrendsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("data_type") == "TIMESERIES" && calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		switch r.URL.Query().Get("data_type") {
		case "TIMESERIES":
			w.Write([]byte(timeseriesBody))
		default:
			w.Write([]byte(relatedBody))
		}
	})

	record, err := c.FetchTrends(context.Background(), "widgets")
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d timeseries calls", calls.Load())
	}
	if len(record.InterestOverTime) != 2 {
		t.Fatalf("expected data after retry, got %+v", record.InterestOverTime)
	}
}

func TestFetchTrendsAuthFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.FetchTrends(context.Background(), "widgets")
	if err == nil || !strings.Contains(err.Error(), "SERPAPI_API_KEY") {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("auth errors should not retry, got %d calls", calls.Load())
	}
}

func TestFetchTrendsRelatedQueriesOptional(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("data_type") {
		case "TIMESERIES":
			w.Write([]byte(timeseriesBody))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	record, err := c.FetchTrends(context.Background(), "widgets")
	if err != nil {
		t.Fatalf("related-queries failure should not fail the fetch: %v", err)
	}
	if len(record.InterestOverTime) != 2 || len(record.TopQueries) != 0 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Jan 5, 2025", "2025-01-05"},
		{"Jan 5 - 11, 2025", "2025-01-05"},
		{"Jan 5 – 11, 2025", "2025-01-05"},
		{"Feb 2025", "2025-02-01"},
		{"2025-03-09", "2025-03-09"},
		{"??", "??"},
	}
	for _, tc := range cases {
		if got := normalizeDate(tc.in); got != tc.want {
			t.Fatalf("normalizeDate(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
