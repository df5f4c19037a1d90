package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"reply_server/pkg/httputil"
	"reply_server/pkg/resilience"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults match a local Ollama server exposing its OpenAI-compatible API.
const (
	DefaultBaseURL     = "http://localhost:11434/v1"
	DefaultModel       = "llama3.1:latest"
	DefaultTemperature = 0.3
)

// ErrEmptyCompletion is returned when the backend answers with no text.
var ErrEmptyCompletion = errors.New("backend returned empty output")

// Client sends single-turn prompts to an OpenAI-compatible backend with a
// fixed model and temperature. It is safe for concurrent use.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	breaker     *resilience.Breaker
}

type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int // 0 leaves the limit to the backend
	Temperature float64 // 0 means unset; config.Validate rejects an explicit zero
	Timeout     time.Duration // 0 disables the per-call deadline
	Breaker     *resilience.Breaker
	HTTPClient  *http.Client // nil uses a pooled backend client
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(baseURL, "/")
	oc.HTTPClient = cfg.HTTPClient
	if oc.HTTPClient == nil {
		oc.HTTPClient = httputil.NewClient(httputil.BackendClientConfig())
	}

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(temperature),
		timeout:     cfg.Timeout,
		breaker:     cfg.Breaker,
	}
}

// Model returns the fixed model identifier.
func (c *Client) Model() string { return c.model }

// Temperature returns the fixed sampling temperature.
func (c *Client) Temperature() float32 { return c.temperature }

// Complete sends prompt as one user message and returns the raw reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.breaker == nil {
		return c.complete(ctx, prompt)
	}
	return c.breaker.Do(func() (string, error) {
		return c.complete(ctx, prompt)
	})
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// Ping lists the backend's models without generating text.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.ListModels(ctx)
	return err
}
