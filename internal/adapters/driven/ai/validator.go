package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// sampleText is embedded to check the configured model can produce vectors.
const sampleText = "docchat embedding check"

// ConfigValidator validates AI provider configurations before they are saved.
type ConfigValidator struct {
	timeout time.Duration
	sample  bool
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithValidationTimeout bounds a single validation, including the sample embedding.
func WithValidationTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithSampleEmbedding makes ValidateEmbedding embed a short text after the ping.
// A reachable provider with a missing model fails here instead of on the
// first ingest.
func WithSampleEmbedding() ValidatorOption {
	return func(v *ConfigValidator) {
		v.sample = true
	}
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: 2 * pingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding pings the embedding provider and optionally embeds a sample text.
// Unconfigured settings are valid.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil {
		return nil
	}
	if config.Provider == domain.AIProviderAnthropic {
		return errAnthropicEmbeddings
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	svc, err := CreateAndValidateEmbeddingService(ctx, config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	if !v.sample {
		return nil
	}
	vec, err := svc.Embed(ctx, sampleText)
	if err != nil {
		return fmt.Errorf("%w: model %q: %w", domain.ErrEmbeddingUnavailable, svc.ModelName(), err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: model %q returned an empty vector", domain.ErrEmbeddingUnavailable, svc.ModelName())
	}
	if dims := svc.Dimensions(); dims > 0 && dims != len(vec) {
		return fmt.Errorf("%w: model %q returned %d dimensions, configured %d",
			domain.ErrDimensionMismatch, svc.ModelName(), len(vec), dims)
	}
	return nil
}

// ValidateLLM pings the LLM provider. Unconfigured settings are valid.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	svc, err := CreateAndValidateLLMService(ctx, config)
	if svc != nil {
		svc.Close()
	}
	return err
}
