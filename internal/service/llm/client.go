// Package llm is a small text-generation client for Ollama and OpenAI-compatible servers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Provider names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Client sends prompts to a language model server.
type Client struct {
	provider   string
	baseURL    string
	model      string
	apiKey     string
	maxRetries uint
	httpClient *http.Client
}

// Config holds the configuration for the client
type Config struct {
	Provider   string        // "ollama" or "openai"
	BaseURL    string        // e.g. "http://ollama.example.com:11434" or an OpenAI-compatible /v1 root
	Model      string        // e.g. "llama3:8b", "gemini-2.5-flash"
	APIKey     string        // Optional bearer token
	Timeout    time.Duration // Per-attempt request timeout (default: 60 seconds)
	MaxRetries int           // Attempts including the first (default: 3)
}

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm API returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new client
func NewClient(config Config) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	switch config.Provider {
	case "":
		config.Provider = ProviderOllama
	case ProviderOllama, ProviderOpenAI:
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
	if config.BaseURL == "" {
		return nil, errors.New("llm base URL is required")
	}

	return &Client{
		provider:   config.Provider,
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		model:      config.Model,
		apiKey:     config.APIKey,
		maxRetries: uint(config.MaxRetries),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// ollamaGenerateRequest represents a request to the Ollama /api/generate endpoint
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"` // false for non-streaming
}

// ollamaGenerateResponse represents a response from the Ollama /api/generate endpoint
type ollamaGenerateResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Response  string    `json:"response"`
	Done      bool      `json:"done"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends one prompt and returns the trimmed model text. Transport
// errors, 429 and 5xx responses are retried with exponential backoff.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	path, body, err := c.buildRequest(prompt)
	if err != nil {
		return "", err
	}

	operation := func() (string, error) {
		return c.do(ctx, path, body)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxRetries),
		backoff.WithMaxElapsedTime(2*time.Minute),
	)
}

func (c *Client) buildRequest(prompt string) (string, []byte, error) {
	var (
		path    string
		payload any
	)
	switch c.provider {
	case ProviderOpenAI:
		path = "/chat/completions"
		payload = chatCompletionRequest{
			Model:    c.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		}
	default:
		path = "/api/generate"
		payload = ollamaGenerateRequest{Model: c.model, Prompt: prompt, Stream: false}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal request: %w", err)
	}
	return path, body, nil
}

func (c *Client) do(ctx context.Context, path string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				return "", backoff.RetryAfter(secs)
			}
			return "", statusErr
		case resp.StatusCode >= 500:
			return "", statusErr
		default:
			return "", backoff.Permanent(statusErr)
		}
	}

	text, err := c.decode(respBody)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) decode(body []byte) (string, error) {
	if c.provider == ProviderOpenAI {
		var out chatCompletionResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("parse chat completion response: %w", err)
		}
		if len(out.Choices) == 0 {
			return "", nil
		}
		return out.Choices[0].Message.Content, nil
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse Ollama response: %w", err)
	}
	return out.Response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
