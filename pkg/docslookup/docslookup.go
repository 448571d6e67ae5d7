// Package docslookup implements the Microsoft Docs lookup collaborator
// (spec.md §6): a read-only query interface agents use to ground
// architectural decisions. No teacher analogue exists for this
// collaborator; it is modeled as a small HTTP client in the shape of the
// rest of this repo's collaborators (context-aware, error-as-value).
package docslookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is one documentation hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Client is the docs lookup collaborator contract.
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// HTTPClient queries a Microsoft Docs search endpoint over HTTP.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPClient returns an HTTPClient with a bounded default timeout.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"results"`
}

func (c *HTTPClient) Search(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("docs lookup: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("search", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("docs lookup: build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docs lookup: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("docs lookup: unexpected status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("docs lookup: decode response: %w", err)
	}

	out := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}

// Static is an in-memory Client backed by a fixed result set, used in
// tests and as an offline fallback when no docs endpoint is configured.
type Static struct {
	Results map[string][]Result
}

func (s Static) Search(ctx context.Context, query string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Results[query], nil
}
