// Package anthropic provides an LLM service adapter using the Anthropic
// Messages API.
package anthropic

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

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.anthropic.com"
	DefaultModel        = "claude-3-5-sonnet-latest"
	DefaultTimeout      = 120 * time.Second
	DefaultMaxTokens    = 1024
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = time.Second

	anthropicVersion = "2023-06-01"
	maxRetryWait     = 30 * time.Second

	// statusOverloaded is returned when the API is temporarily saturated.
	statusOverloaded = 529
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout bounds one HTTP attempt (default: 120s).
	Timeout time.Duration

	// MaxRetries is how often a rate-limited or overloaded call is retried.
	// Negative disables retries (default: 2).
	MaxRetries int

	// RetryBackoff is the first wait between retries, roughly doubled each
	// time with jitter. A Retry-After header takes precedence (default: 1s).
	RetryBackoff time.Duration
}

// LLMService provides chat completion using the Anthropic API.
type LLMService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	backoff    time.Duration
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("anthropic error (%s, status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("anthropic error (status %d): %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == statusOverloaded:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type errorEnvelope struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}

	return &LLMService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	messages := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
	chatOpts := driven.ChatOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature}
	return s.complete(ctx, s.buildRequest(messages, chatOpts, opts.StopWords))
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.complete(ctx, s.buildRequest(messages, opts, nil))
}

// buildRequest moves system messages into the system field and merges
// consecutive messages of the same role. The API requires user and
// assistant turns to alternate.
func (s *LLMService) buildRequest(messages []driven.ChatMessage, opts driven.ChatOptions, stop []string) messagesRequest {
	req := messagesRequest{
		Model:     s.model,
		MaxTokens: opts.MaxTokens,
		StopSeqs:  stop,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	temperature := opts.Temperature
	req.Temperature = &temperature

	var system []string
	for _, msg := range messages {
		switch last := len(req.Messages) - 1; {
		case msg.Role == driven.RoleSystem:
			system = append(system, msg.Content)
		case last >= 0 && req.Messages[last].Role == msg.Role:
			req.Messages[last].Content += "\n\n" + msg.Content
		default:
			req.Messages = append(req.Messages, messagesMessage{Role: msg.Role, Content: msg.Content})
		}
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

func (s *LLMService) complete(ctx context.Context, req messagesRequest) (string, error) {
	var resp messagesResponse
	if err := s.do(ctx, http.MethodPost, "/v1/messages", req, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text content returned (stop reason %q)", resp.StopReason)
	}
	if resp.StopReason == "max_tokens" {
		logger.Debug("anthropic: answer truncated at %d tokens", req.MaxTokens)
	}
	return text.String(), nil
}

// do sends one JSON request, retrying temporary API errors with backoff.
// in may be nil for bodiless requests, and out may be nil to discard the body.
func (s *LLMService) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var (
		attempt int
		lastErr error
	)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := s.roundTrip(ctx, method, path, payload, out)
		lastErr = err

		var apiErr *APIError
		switch {
		case err == nil:
			return struct{}{}, nil
		case !errors.As(err, &apiErr) || !apiErr.Temporary():
			return struct{}{}, backoff.Permanent(err)
		case apiErr.RetryAfter > 0 && attempt <= s.maxRetries:
			// The final attempt keeps the API error so callers can inspect it.
			return struct{}{}, backoff.RetryAfter(int(min(apiErr.RetryAfter, maxRetryWait) / time.Second))
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.maxRetries+1)),
		backoff.WithNotify(func(_ error, wait time.Duration) {
			logger.Debug("anthropic: %v, retrying in %s", lastErr, wait)
		}),
	)
	return err
}

// newBackOff doubles the wait from the configured first interval, capped at
// maxRetryWait. A Retry-After header overrides it for that attempt.
func (s *LLMService) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.backoff
	b.Multiplier = 2
	b.MaxInterval = maxRetryWait
	return b
}

func (s *LLMService) roundTrip(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		apiErr.Type = env.Error.Type
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

// parseRetryAfter reads the delay-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models, without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.do(ctx, http.MethodGet, "/v1/models", nil, nil); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
