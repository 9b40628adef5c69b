package trendsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jamiesonbates/trendscout/internal/trendcontext"
)

const (
	DefaultBaseURL = "https://serpapi.com"
	searchPath     = "/search.json"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Geo        string
	Timeframe  string
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client fetches Google Trends data through the SerpAPI gateway. One
// FetchTrends call issues the timeseries and related-queries requests and
// merges them into a single record.
type Client struct {
	cfg Config
	log *logrus.Logger
}

func NewClient(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("SERPAPI_API_KEY not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "today 12-m"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{cfg: cfg, log: cfg.Logger}, nil
}

type timelinePoint struct {
	Date   string `json:"date"`
	Values []struct {
		ExtractedValue float64 `json:"extracted_value"`
	} `json:"values"`
}

type queryItem struct {
	Query          string `json:"query"`
	ExtractedValue int    `json:"extracted_value"`
}

type regionItem struct {
	Location       string  `json:"location"`
	ExtractedValue float64 `json:"extracted_value"`
}

type topicItem struct {
	Topic struct {
		Title string `json:"title"`
	} `json:"topic"`
}

type timeseriesResponse struct {
	InterestOverTime struct {
		TimelineData []timelinePoint `json:"timeline_data"`
	} `json:"interest_over_time"`
	InterestByRegion []regionItem `json:"interest_by_region"`
}

type relatedResponse struct {
	RelatedQueries struct {
		Top    []queryItem `json:"top"`
		Rising []queryItem `json:"rising"`
	} `json:"related_queries"`
	RelatedTopics struct {
		Top []topicItem `json:"top"`
	} `json:"related_topics"`
}

func (c *Client) FetchTrends(ctx context.Context, keyword string) (trendcontext.RawTrendsRecord, error) {
	record := trendcontext.RawTrendsRecord{Keyword: keyword}

	var series timeseriesResponse
	if err := c.get(ctx, keyword, "TIMESERIES", &series); err != nil {
		return record, fmt.Errorf("fetch interest over time: %w", err)
	}
	for _, p := range series.InterestOverTime.TimelineData {
		if len(p.Values) == 0 {
			continue
		}
		record.InterestOverTime = append(record.InterestOverTime, trendcontext.InterestPoint{
			Date:     normalizeDate(p.Date),
			Interest: p.Values[0].ExtractedValue,
		})
	}
	for _, r := range series.InterestByRegion {
		record.Regions = append(record.Regions, trendcontext.RegionInterest{
			Region:   r.Location,
			Interest: r.ExtractedValue,
		})
	}

	// Related queries are optional; a keyword with no query data still
	// produces a usable record, flagged downstream by the quality pass.
	var related relatedResponse
	if err := c.get(ctx, keyword, "RELATED_QUERIES", &related); err != nil {
		c.log.WithFields(logrus.Fields{"keyword": keyword}).WithError(err).Warn("related queries unavailable")
		return record, nil
	}
	for _, q := range related.RelatedQueries.Top {
		record.TopQueries = append(record.TopQueries, trendcontext.QueryEntry{Query: q.Query, Value: q.ExtractedValue})
	}
	for _, q := range related.RelatedQueries.Rising {
		record.RisingQueries = append(record.RisingQueries, trendcontext.QueryEntry{Query: q.Query, Value: q.ExtractedValue})
	}
	for _, t := range related.RelatedTopics.Top {
		if strings.TrimSpace(t.Topic.Title) != "" {
			record.RelatedTopics = append(record.RelatedTopics, t.Topic.Title)
		}
	}
	return record, nil
}

func (c *Client) get(ctx context.Context, keyword, dataType string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		code, retryAfter, err := c.getOnce(ctx, keyword, dataType, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if code == http.StatusUnauthorized || code == http.StatusForbidden {
			return errors.New("SerpAPI authentication failed. Check SERPAPI_API_KEY")
		}
		if code == http.StatusBadRequest {
			return err
		}
		retryable := code == http.StatusTooManyRequests || code >= 500 || code == 0 && isTimeoutError(err)
		if !retryable || attempt == 3 {
			return err
		}
		sleep := retryAfter
		if sleep <= 0 {
			sleep = backoffDelay(attempt)
		}
		if err := sleepCtx(ctx, sleep); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, keyword, dataType string, out any) (int, time.Duration, error) {
	q := url.Values{}
	q.Set("engine", "google_trends")
	q.Set("q", keyword)
	q.Set("data_type", dataType)
	q.Set("date", c.cfg.Timeframe)
	q.Set("api_key", c.cfg.APIKey)
	if c.cfg.Geo != "" {
		q.Set("geo", c.cfg.Geo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<20))

	retryAfter := parseRetryAfter(res.Header.Get("Retry-After"))
	if res.StatusCode >= 400 {
		return res.StatusCode, retryAfter, fmt.Errorf("status code: %d body=%s", res.StatusCode, truncateBody(b))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return res.StatusCode, retryAfter, fmt.Errorf("decode response: %w", err)
	}
	return res.StatusCode, retryAfter, nil
}

var dateRangeRe = regexp.MustCompile(`^([A-Za-z]{3}) (\d{1,2})\s*[-\x{2013}].*?(\d{4})$`)

var wireDateLayouts = []string{"Jan 2, 2006", "Jan 2006", "2006-01-02"}

// normalizeDate converts the wire date formats ("Jan 5, 2025", range
// variants like "Jan 5 - 11, 2025", "Jan 2025") to ISO dates. A range
// keeps its start day. Unrecognized strings pass through unchanged and
// are dropped by the cleaning pass.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if m := dateRangeRe.FindStringSubmatch(s); m != nil {
		s = fmt.Sprintf("%s %s, %s", m[1], m[2], m[3])
	}
	for _, layout := range wireDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

func parseRetryAfter(v string) time.Duration {
	if strings.TrimSpace(v) == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
