package topic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultKialoURL is the Kialo Edu page listing debate topics.
const DefaultKialoURL = "https://www.kialo-edu.com/debate-topics-and-argumentative-essay-topics"

const kialoUserAgent = "Mozilla/5.0 (compatible; PodiumBot/1.0)"

var listItemRe = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
var tagRe = regexp.MustCompile(`<[^>]+>`)

// Kialo scrapes debate topics from the Kialo Edu topics page. Scraped
// topics are written through to the cache when one is configured.
type Kialo struct {
	URL   string
	Cache *Cache

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Topic scrapes the topic list and returns one entry.
func (k *Kialo) Topic(ctx context.Context, hint string) (string, error) {
	topics, err := k.Scrape(ctx)
	if err != nil {
		return "", err
	}
	if k.Cache != nil {
		if err := k.Cache.Store(topics); err != nil {
			slog.Warn("Failed to cache scraped topics", "error", err)
		}
	}
	t, ok := pick(topics, hint)
	if !ok {
		return "", ErrTopicUnavailable
	}
	return t, nil
}

// Scrape fetches the topics page and extracts candidate topics.
func (k *Kialo) Scrape(ctx context.Context) ([]string, error) {
	url := k.URL
	if url == "" {
		url = DefaultKialoURL
	}
	client := k.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", kialoUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch topics page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("topics page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read topics page: %w", err)
	}

	topics := extractTopics(string(body))
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics found on page")
	}
	slog.Debug("Scraped debate topics", "count", len(topics))
	return topics, nil
}

// extractTopics pulls list items out of the page HTML and formats them
// as debate questions. Items shorter than a plausible topic are noise
// (navigation links, footers) and are dropped.
func extractTopics(html string) []string {
	var topics []string
	seen := make(map[string]bool)

	for _, m := range listItemRe.FindAllStringSubmatch(html, -1) {
		text := strings.TrimSpace(tagRe.ReplaceAllString(m[1], ""))
		text = strings.Join(strings.Fields(text), " ")
		if len(text) <= 10 || len(text) > 200 {
			continue
		}
		formatted := FormatAsQuestion(text)
		if !seen[formatted] {
			seen[formatted] = true
			topics = append(topics, formatted)
		}
	}
	return topics
}
