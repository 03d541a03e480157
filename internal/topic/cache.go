package topic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache reads and writes a JSON file of previously scraped topics.
type Cache struct {
	Path string
}

// Topic returns a topic from the cache file, if one exists.
func (c *Cache) Topic(_ context.Context, hint string) (string, error) {
	topics, err := c.Load()
	if err != nil {
		return "", err
	}
	t, ok := pick(topics, hint)
	if !ok {
		return "", ErrTopicUnavailable
	}
	return t, nil
}

// Load reads the cached topic list.
func (c *Cache) Load() ([]string, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("read topics cache: %w", err)
	}
	var topics []string
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("parse topics cache: %w", err)
	}
	return topics, nil
}

// Store writes the topic list to the cache file.
func (c *Cache) Store(topics []string) error {
	if len(topics) == 0 {
		return nil
	}
	dir := filepath.Dir(c.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(topics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal topics cache: %w", err)
	}
	if err := os.WriteFile(c.Path, data, 0644); err != nil {
		return fmt.Errorf("write topics cache: %w", err)
	}
	return nil
}
