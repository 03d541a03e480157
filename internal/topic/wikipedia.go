package topic

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

// DefaultWikipediaURL is the English Wikipedia API endpoint.
const DefaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

// Wikipedia looks up background information for a debate topic. Used to
// ground the moderator's introduction; lookup failure is non-fatal.
type Wikipedia struct {
	URL        string
	HTTPClient *http.Client
}

// wikiResponse is the subset of the query API response we consume.
type wikiResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

var htmlTagRe = tagRe // same stripper as the Kialo scraper

// Background searches Wikipedia for the topic and returns a short
// background summary built from the top results.
func (w *Wikipedia) Background(ctx context.Context, topic string) (string, error) {
	base := w.URL
	if base == "" {
		base = DefaultWikipediaURL
	}
	client := w.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {searchQuery(topic)},
		"srlimit":  {"3"},
		"format":   {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", kialoUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search wikipedia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed wikiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Query.Search) == 0 {
		return "", fmt.Errorf("no results for topic")
	}

	var b strings.Builder
	for _, r := range parsed.Query.Search {
		snippet := strings.TrimSpace(htmlTagRe.ReplaceAllString(r.Snippet, ""))
		if snippet == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", r.Title, snippet)
	}
	return strings.TrimSpace(b.String()), nil
}

// searchQuery strips question phrasing so the search hits encyclopedic
// articles rather than question pages.
func searchQuery(topic string) string {
	q := strings.TrimSuffix(strings.TrimSpace(topic), "?")
	for _, prefix := range []string{"Should ", "Is ", "Are ", "Does ", "Can ", "Will ", "Would "} {
		if strings.HasPrefix(q, prefix) {
			q = q[len(prefix):]
			break
		}
	}
	return q
}
