package competitorsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jamiesonbates/trendscout/internal/analysis"
)

const (
	DefaultBaseURL    = "https://api.tavily.com"
	searchPath        = "/search"
	DefaultMaxResults = 5
)

type Config struct {
	APIKey     string
	BaseURL    string
	MaxResults int
	HTTPClient *http.Client
}

// Client discovers competing products through the Tavily search API.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("TAVILY_API_KEY not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{cfg: cfg}, nil
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (c *Client) FindCompetitors(ctx context.Context, keyword string) ([]analysis.CompetitorProfile, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:      c.cfg.APIKey,
		Query:       fmt.Sprintf("best %s products and apps", keyword),
		MaxResults:  c.cfg.MaxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<20))

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, errors.New("Tavily authentication failed. Check TAVILY_API_KEY")
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("status code: %d", res.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(b, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	seen := map[string]struct{}{}
	out := make([]analysis.CompetitorProfile, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		name := strings.TrimSpace(r.Title)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, analysis.CompetitorProfile{
			Name:    name,
			URL:     r.URL,
			Summary: summarize(r.Content),
		})
		if len(out) == c.cfg.MaxResults {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no competitor results found")
	}
	return out, nil
}

// summarize keeps the prompt payload small; full page content is noise
// for the gap-analysis stage.
func summarize(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	const max = 400
	if len(content) > max {
		return content[:max] + "..."
	}
	return content
}
