// Package topic sources debate topics from a fallback chain of providers:
// a local cache, a scraped corpus, and a builtin list.
package topic

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
)

// ErrTopicUnavailable is returned when every configured source is exhausted.
var ErrTopicUnavailable = errors.New("no debate topic available")

// Source returns a debate topic, optionally filtered by a hint.
type Source interface {
	Topic(ctx context.Context, hint string) (string, error)
}

// Chain tries each source in order until one yields a topic.
type Chain struct {
	sources []Source
}

// NewChain creates a topic chain. Order matters: earlier sources win.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Topic returns the first topic any source produces, or ErrTopicUnavailable.
func (c *Chain) Topic(ctx context.Context, hint string) (string, error) {
	for _, s := range c.sources {
		t, err := s.Topic(ctx, hint)
		if err == nil && t != "" {
			return t, nil
		}
		if err != nil {
			slog.Debug("Topic source failed, trying next", "error", err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", ErrTopicUnavailable
}

// pick selects a topic from candidates, preferring ones matching the hint.
func pick(candidates []string, hint string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if hint != "" {
		var matched []string
		lower := strings.ToLower(hint)
		for _, t := range candidates {
			if strings.Contains(strings.ToLower(t), lower) {
				matched = append(matched, t)
			}
		}
		if len(matched) > 0 {
			return matched[rand.Intn(len(matched))], true
		}
		// A hint with no match falls through to any topic; the hint is
		// advisory, not a filter contract.
	}
	return candidates[rand.Intn(len(candidates))], true
}

// Static is a fixed list of general debate topics, used as the last
// link in the chain.
type Static struct {
	Topics []string
}

// DefaultFallbackTopics are used when scraping and cache both fail.
var DefaultFallbackTopics = []string{
	"Should universal basic income be implemented?",
	"Is artificial intelligence a threat to humanity?",
	"Should college education be free?",
	"Is climate change primarily caused by human activities?",
	"Should vaccines be mandatory?",
	"Is social media harmful to society?",
	"Should gene editing of human embryos be legal?",
	"Is capitalism the best economic system?",
	"Should voting be mandatory?",
	"Is nuclear energy the solution to climate change?",
}

// Topic returns a random topic from the static list.
func (s *Static) Topic(_ context.Context, hint string) (string, error) {
	topics := s.Topics
	if len(topics) == 0 {
		topics = DefaultFallbackTopics
	}
	t, ok := pick(topics, hint)
	if !ok {
		return "", ErrTopicUnavailable
	}
	return t, nil
}

// FormatAsQuestion formats a scraped topic as a debate question.
func FormatAsQuestion(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return topic
	}
	if strings.HasSuffix(topic, "?") {
		return topic
	}

	prefixes := []string{"should", "is", "are", "does", "can", "will", "would"}
	lower := strings.ToLower(topic)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p+" ") {
			return strings.ToUpper(topic[:1]) + topic[1:] + "?"
		}
	}
	return "Should " + strings.ToLower(topic[:1]) + topic[1:] + " be supported?"
}
