package driving

import "github.com/custodia-labs/docchat/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings over the defaults.
	Get() (*domain.Settings, error)

	// Save persists settings.
	Save(settings *domain.Settings) error

	// SetEmbeddingProvider configures the embedding provider.
	// Derived embeddings and the index are kept per model.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that settings are usable for ingestion and chat.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// PipelineConfig returns the post-processor order and per-processor config.
	PipelineConfig() (names []string, configs map[string]map[string]any)

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig pings the configured LLM provider.
	ValidateLLMConfig() error
}
