package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/evigate/internal/cache"
	"github.com/ppiankov/evigate/internal/model"
)

func newTestServer(t *testing.T, handler func(q, categories string) searxResponse) (*httptest.Server, *int64) {
	t.Helper()
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if r.URL.Path != "/search" {
			t.Errorf("Expected path /search, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "json" {
			t.Error("format=json missing")
		}
		resp := handler(r.URL.Query().Get("q"), r.URL.Query().Get("categories"))
		_ = json.NewEncoder(w).Encode(resp)
	}))
	return server, &calls
}

func testConfig(baseURL string) model.SearchConfig {
	return model.SearchConfig{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		MaxResults:    10,
		RatePerSecond: 100,
		RateBurst:     10,
	}
}

func TestClient_Search_ParsesResults(t *testing.T) {
	server, _ := newTestServer(t, func(q, categories string) searxResponse {
		return searxResponse{Results: []searxResult{
			{
				URL:           "https://reuters.com/ai-survey",
				Title:         "Enterprise AI survey",
				Content:       "62% of firms report adoption.",
				Engine:        "reuters",
				PublishedDate: "2026-08-20T10:00:00Z",
			},
			{
				URL:     "https://example.com/undated",
				Title:   "Undated piece",
				Content: "No timestamp here.",
			},
			{Title: "missing URL, dropped"},
		}}
	})
	defer server.Close()

	client := NewClient(testConfig(server.URL), model.HTTPConfig{}, nil)
	results, err := client.Search(context.Background(), Request{Query: "enterprise ai", TimeRange: "week"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].HasDate || results[0].Published.IsZero() {
		t.Error("dated result should carry its timestamp")
	}
	if results[1].HasDate {
		t.Error("undated result should report HasDate=false")
	}
}

func TestClient_Search_StrictDatesDropsUndated(t *testing.T) {
	server, _ := newTestServer(t, func(q, categories string) searxResponse {
		return searxResponse{Results: []searxResult{
			{URL: "https://a.com/1", Title: "dated", PublishedDate: "2026-08-01"},
			{URL: "https://a.com/2", Title: "undated"},
		}}
	})
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.StrictDates = true
	client := NewClient(cfg, model.HTTPConfig{}, nil)

	results, err := client.Search(context.Background(), Request{Query: "x"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Title != "dated" {
		t.Errorf("strict dates should keep only dated results, got %+v", results)
	}
}

func TestClient_Search_RetriesWithoutCategories(t *testing.T) {
	server, calls := newTestServer(t, func(q, categories string) searxResponse {
		if categories != "" {
			return searxResponse{}
		}
		return searxResponse{Results: []searxResult{
			{URL: "https://a.com/1", Title: "hit", PublishedDate: "2026-08-01"},
		}}
	})
	defer server.Close()

	client := NewClient(testConfig(server.URL), model.HTTPConfig{}, nil)
	results, err := client.Search(context.Background(), Request{
		Query:      "niche topic",
		Categories: []string{"news"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("retry without categories should recover results, got %d", len(results))
	}
	if got := atomic.LoadInt64(calls); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
}

func TestClient_Search_UsesCache(t *testing.T) {
	server, calls := newTestServer(t, func(q, categories string) searxResponse {
		return searxResponse{Results: []searxResult{
			{URL: "https://a.com/1", Title: "hit", PublishedDate: "2026-08-01"},
		}}
	})
	defer server.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	client := NewClient(testConfig(server.URL), model.HTTPConfig{}, store)

	req := Request{Query: "cached query", TimeRange: "week"}
	if _, err := client.Search(context.Background(), req); err != nil {
		t.Fatalf("first search failed: %v", err)
	}
	if _, err := client.Search(context.Background(), req); err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if got := atomic.LoadInt64(calls); got != 1 {
		t.Errorf("second search should hit the cache, upstream calls: %d", got)
	}
}

func TestClient_Search_TruncatesToMaxResults(t *testing.T) {
	server, _ := newTestServer(t, func(q, categories string) searxResponse {
		resp := searxResponse{}
		for i := 0; i < 30; i++ {
			resp.Results = append(resp.Results, searxResult{
				URL:           "https://a.com/" + string(rune('a'+i)),
				Title:         "hit",
				PublishedDate: "2026-08-01",
			})
		}
		return resp
	})
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxResults = 5
	client := NewClient(cfg, model.HTTPConfig{}, nil)

	results, err := client.Search(context.Background(), Request{Query: "x"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("expected 5 results, got %d", len(results))
	}
}

func TestParsePublished(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"2026-08-20T10:00:00Z", true},
		{"2026-08-20T10:00:00", true},
		{"2026-08-20 10:00:00", true},
		{"2026-08-20", true},
		{"", false},
		{"last Tuesday", false},
	}
	for _, c := range cases {
		if _, ok := parsePublished(c.raw); ok != c.want {
			t.Errorf("parsePublished(%q) hasDate = %v, want %v", c.raw, ok, c.want)
		}
	}
}
