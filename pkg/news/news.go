// Package news fetches current-events summaries for the orchestrator's
// news short-circuit.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBraveNewsEndpoint = "https://api.search.brave.com/res/v1/news/search"

// Fetcher produces a short, plain-text headlines summary for a query.
type Fetcher interface {
	Headlines(ctx context.Context, query string, limit int) (string, error)
}

// BraveFetcher queries the Brave News Search API.
type BraveFetcher struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewBraveFetcher(apiKey string) *BraveFetcher {
	return &BraveFetcher{
		apiKey:   apiKey,
		endpoint: defaultBraveNewsEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewBraveFetcherForEndpoint points the fetcher at an alternate endpoint.
func NewBraveFetcherForEndpoint(apiKey, endpoint string) *BraveFetcher {
	f := NewBraveFetcher(apiKey)
	f.endpoint = endpoint
	return f
}

func (f *BraveFetcher) Headlines(ctx context.Context, query string, limit int) (string, error) {
	if limit <= 0 {
		limit = 5
	}
	reqURL := fmt.Sprintf("%s?q=%s&count=%d", f.endpoint, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("news API returned status %d", resp.StatusCode)
	}

	var newsResp struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &newsResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(newsResp.Results) == 0 {
		return "", fmt.Errorf("no headlines for %q", query)
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Principais notícias sobre %s:", query))
	for i, item := range newsResp.Results {
		if i >= limit {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item.Title))
		if item.Description != "" {
			lines = append(lines, fmt.Sprintf("   %s", item.Description))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// StaticFetcher is used when no news API key is configured. It always
// succeeds with a fixed explanation so the short-circuit path still has
// something sensible to say.
type StaticFetcher struct{}

func (StaticFetcher) Headlines(ctx context.Context, query string, limit int) (string, error) {
	return "No momento não tenho acesso a notícias em tempo real. " +
		"Posso te ajudar com dúvidas sobre os seus estudos e projetos.", nil
}
