package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CrossrefClient implements Biblio against a Crossref-compatible works API.
type CrossrefClient struct {
	baseURL    string
	httpClient *http.Client
	rows       int
}

// NewCrossrefClient creates a bibliographic client. baseURL defaults to the
// public Crossref API.
func NewCrossrefClient(baseURL string, timeout time.Duration) *CrossrefClient {
	if baseURL == "" {
		baseURL = "https://api.crossref.org"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &CrossrefClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		rows:       3,
	}
}

type crossrefResponse struct {
	Message struct {
		Items []struct {
			DOI            string   `json:"DOI"`
			Title          []string `json:"title"`
			URL            string   `json:"URL"`
			ContainerTitle []string `json:"container-title"`
			Issued         struct {
				DateParts [][]int `json:"date-parts"`
			} `json:"issued"`
		} `json:"items"`
	} `json:"message"`
}

// Lookup queries the works endpoint. Errors are returned for the caller to
// ignore; this client never retries.
func (c *CrossrefClient) Lookup(ctx context.Context, query string) ([]BiblioRecord, error) {
	endpoint := fmt.Sprintf("%s/works?query=%s&rows=%d", c.baseURL, url.QueryEscape(query), c.rows)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create biblio request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute biblio lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("biblio lookup returned HTTP %d", resp.StatusCode)
	}

	var wire crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode biblio response: %w", err)
	}

	records := make([]BiblioRecord, 0, len(wire.Message.Items))
	for _, item := range wire.Message.Items {
		rec := BiblioRecord{DOI: item.DOI, URL: item.URL}
		if len(item.Title) > 0 {
			rec.Title = item.Title[0]
		}
		if len(item.ContainerTitle) > 0 {
			rec.Venue = item.ContainerTitle[0]
		}
		if len(item.Issued.DateParts) > 0 && len(item.Issued.DateParts[0]) > 0 {
			rec.Year = item.Issued.DateParts[0][0]
		}
		records = append(records, rec)
	}
	return records, nil
}
