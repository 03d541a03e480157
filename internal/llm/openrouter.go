package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/podiumlabs/podium/internal/core"
)

const (
	// DefaultBaseURL is the OpenRouter chat completions endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 60 * time.Second

	// maxResponseSize caps the response body read (1MB).
	maxResponseSize = 1 << 20
)

// ClientConfig holds settings for the OpenRouter client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client calls an OpenRouter-compatible chat completions API.
type Client struct {
	cfg   ClientConfig
	httpc *http.Client
}

// NewClient creates a new completion client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt and returns the generated text.
func (c *Client) Complete(ctx context.Context, role core.Role, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", &UpstreamError{Message: "encode request", Err: err}
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &UpstreamError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	slog.Debug("Sending completion request", "role", role, "model", c.cfg.Model, "prompt_len", len(prompt))

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Timeouts and connection failures are transient.
		return "", &UpstreamError{Transient: true, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &UpstreamError{Transient: true, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, data)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	if parsed.Error != nil {
		return "", classifyStatus(parsed.Error.Code, []byte(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: "response has no choices"}
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: "response content is empty"}
	}

	slog.Debug("Completion request succeeded", "role", role, "output_len", len(content))
	return content, nil
}

// classifyStatus maps an HTTP status to a classified upstream error.
// Rate limits and server errors are transient; auth and malformed-request
// failures are permanent.
func classifyStatus(status int, body []byte) *UpstreamError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	transient := status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
	return &UpstreamError{
		Transient:  transient,
		StatusCode: status,
		Message:    fmt.Sprintf("status %d: %s", status, msg),
	}
}

var errMissingAPIKey = errors.New("OPENROUTER_API_KEY is not set")

// Validate checks that the client has the settings it needs.
func (c *Client) Validate() error {
	if c.cfg.APIKey == "" {
		return errMissingAPIKey
	}
	if c.cfg.Model == "" {
		return errors.New("model is not configured")
	}
	return nil
}
