// Package ai builds embedding and LLM adapters from settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docchat/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docchat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// configHint is appended to provider errors.
const configHint = "check the embedding and llm sections of ~/.docchat/config.toml or run 'docchat config show'"

// Services holds the AI adapters a command needs.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
}

// Close releases all resources held by the services.
func (s *Services) Close() error {
	var errs []error
	if s.Embedding != nil {
		errs = append(errs, s.Embedding.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	return errors.Join(errs...)
}

// Init creates the services named by settings. The LLM is only built when
// withLLM is set; ingestion and search need embeddings alone. Both services
// are pinged before they are returned.
func Init(ctx context.Context, settings *domain.Settings, withLLM bool) (*Services, error) {
	embed, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embed == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured; %s",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, configHint)
	}

	services := &Services{Embedding: embed}
	if !withLLM {
		return services, nil
	}

	llm, err := CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		services.Close()
		return nil, err
	}
	if llm == nil {
		services.Close()
		return nil, fmt.Errorf("%w: provider %q is not configured; %s",
			domain.ErrLLMUnavailable, settings.LLM.Provider, configHint)
	}
	services.LLM = llm
	return services, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrEmbeddingUnavailable, err, configHint)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w); %s",
			domain.ErrEmbeddingUnavailable, settings.Provider, err, configHint)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrLLMUnavailable, err, configHint)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w); %s",
			domain.ErrLLMUnavailable, settings.Provider, err, configHint)
	}

	return svc, nil
}

// ValidateEmbeddingConfig pings the embedding provider with the default validator.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	return NewConfigValidator().ValidateEmbedding(settings)
}

// ValidateLLMConfig pings the LLM provider with the default validator.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	return NewConfigValidator().ValidateLLM(settings)
}

var errAnthropicEmbeddings = errors.New("anthropic does not support embeddings, use ollama or openai")

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, errAnthropicEmbeddings
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		}), nil

	case domain.AIProviderOpenAI:
		// Dimensions stay unset so the model returns its native size.
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
