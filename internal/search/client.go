package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/evigate/internal/cache"
	"github.com/ppiankov/evigate/internal/model"
	"github.com/ppiankov/evigate/internal/util"
	"github.com/ppiankov/evigate/internal/worker"
)

// Request describes one retrieval query against the search collaborator.
type Request struct {
	Query      string
	TimeRange  string // day, week, month, year, or empty for no restriction
	Categories []string
}

// Result is one raw hit before annotation.
type Result struct {
	URL       string
	Title     string
	Content   string
	Publisher string
	Published time.Time
	HasDate   bool
}

// Client queries a SearXNG-compatible JSON endpoint with per-host rate
// limiting and layered caching.
type Client struct {
	baseURL    string
	maxResults int
	strictDate bool
	httpClient *http.Client
	limiter    *worker.Limiter
	cache      cache.Cache
}

// searxng wire format (format=json)
type searxResponse struct {
	Results []searxResult `json:"results"`
}

type searxResult struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Engine        string `json:"engine"`
	PublishedDate string `json:"publishedDate"`
}

// NewClient creates a search client. cache may be nil to disable caching.
func NewClient(cfg model.SearchConfig, httpCfg model.HTTPConfig, store cache.Cache) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond == 0 {
		ratePerSecond = 2
	}
	maxResults := cfg.MaxResults
	if maxResults == 0 {
		maxResults = 10
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxResults: maxResults,
		strictDate: cfg.StrictDates,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
		limiter: worker.NewLimiter(ratePerSecond, cfg.RateBurst),
		cache:   store,
	}
}

// Search runs one query. When a categorised query returns nothing, it retries
// once without categories; engines differ on which categories they serve, and
// an empty axis is worse than an uncategorised one.
func (c *Client) Search(ctx context.Context, req Request) ([]Result, error) {
	results, err := c.search(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && len(req.Categories) > 0 {
		retry := req
		retry.Categories = nil
		return c.search(ctx, retry)
	}
	return results, nil
}

func (c *Client) search(ctx context.Context, req Request) ([]Result, error) {
	key := cache.QueryKey(req.Query, req.TimeRange, req.Categories)
	if c.cache != nil {
		if raw, found := c.cache.Get(key); found {
			var cached []Result
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	endpoint := fmt.Sprintf("%s/search", c.baseURL)
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("format", "json")
	if req.TimeRange != "" {
		params.Set("time_range", req.TimeRange)
	}
	if len(req.Categories) > 0 {
		params.Set("categories", strings.Join(req.Categories, ","))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var wire searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, len(wire.Results))
	for _, r := range wire.Results {
		if r.URL == "" {
			continue
		}
		published, hasDate := parsePublished(r.PublishedDate)
		if c.strictDate && !hasDate {
			continue
		}
		results = append(results, Result{
			URL:       r.URL,
			Title:     strings.TrimSpace(r.Title),
			Content:   strings.TrimSpace(r.Content),
			Publisher: r.Engine,
			Published: published,
			HasDate:   hasDate,
		})
		if len(results) >= c.maxResults {
			break
		}
	}

	if c.cache != nil {
		if raw, err := json.Marshal(results); err == nil {
			_ = c.cache.Set(key, raw, 0)
		}
	}
	return results, nil
}

// parsePublished tolerates the date shapes engines actually emit.
func parsePublished(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
