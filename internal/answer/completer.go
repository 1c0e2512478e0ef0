// Package answer decides what text goes into each form control: literal
// profile data where the purpose is known, or a short generated answer from a
// chat completion API for free-text questions.
package answer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"

	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultGroqModel     = "llama-3.1-8b-instant"
	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultMaxTokens     = 200
	DefaultTemperature   = 0.7
	DefaultTimeout       = 10 * time.Second
	DefaultRatePerMinute = 30
)

var (
	// ErrNoCredential means no API key is configured; callers fall back to
	// canned answers.
	ErrNoCredential = errors.New("no completion API key configured")

	// ErrEmptyResponse is returned when the API answered with no text
	ErrEmptyResponse = errors.New("completion API returned no content")
)

// Config selects and tunes the completion backend
type Config struct {
	Provider      string
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Temperature   float32
	Timeout       time.Duration
	RatePerMinute int
}

// Completer turns a prompt into a single completion
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewCompleter builds the configured backend. It returns ErrNoCredential
// when there is no key, which is not fatal for a run.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoCredential
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGroq:
		return newChatCompleter(cfg), nil
	case ProviderGemini:
		return newGeminiCompleter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

// chatCompleter speaks the OpenAI chat completions protocol, which Groq
// serves under /openai/v1.
type chatCompleter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func newChatCompleter(cfg Config) *chatCompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = DefaultGroqBaseURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultGroqModel
	}

	return &chatCompleter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *chatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

type geminiCompleter struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func newGeminiCompleter(ctx context.Context, cfg Config) (*geminiCompleter, error) {
	timeout := cfg.Timeout
	clientCfg := &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{Timeout: &timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	genCfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	if cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(cfg.Temperature)
	}

	return &geminiCompleter{client: client, model: model, config: genCfg}, nil
}

func (c *geminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
