package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/postprocessors"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize       = "chunking.chunk_size"
	keyChunkOverlap    = "chunking.chunk_overlap"
	keyMinChunkSize    = "chunking.min_chunk_size"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedBatchSize  = "embedding.batch_size"
	keyEmbedWorkers    = "embedding.workers"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyRetrievalTopK   = "retrieval.top_k"
	keyRetrievalMetric = "retrieval.metric"
	keyPathsRoot       = "paths.root"
	keyPathsData       = "paths.data"
	keyTrackerBackend  = "tracker.backend"
	keyPipeline        = "pipeline.processors"
)

// Environment variables consulted for API keys missing from the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// The aiValidator is optional.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current settings over the defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Chunking: domain.ChunkingSettings{
			ChunkSize:    s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			ChunkOverlap: s.getIntOrZero(keyChunkOverlap, defaults.Chunking.ChunkOverlap),
			MinChunkSize: s.getIntOrZero(keyMinChunkSize, defaults.Chunking.MinChunkSize),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			Workers:           s.getInt(keyEmbedWorkers, defaults.Embedding.Workers),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:   s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			Metric: s.getMetric(defaults.Retrieval.Metric),
		},
		Paths: domain.PathSettings{
			Root: s.configStore.GetString(keyPathsRoot),
			Data: s.configStore.GetString(keyPathsData),
		},
		Tracker: s.getTrackerBackend(defaults.Tracker),
	}

	// Models default per provider, so a provider switch without a model
	// picks that provider's default rather than the stock one.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = defaultOllamaURL
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envAPIKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envAPIKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists settings. API keys taken from the environment are not written.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key string
		val any
	}{
		{keyChunkSize, settings.Chunking.ChunkSize},
		{keyChunkOverlap, settings.Chunking.ChunkOverlap},
		{keyMinChunkSize, settings.Chunking.MinChunkSize},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedWorkers, settings.Embedding.Workers},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyRetrievalTopK, settings.Retrieval.TopK},
		{keyRetrievalMetric, settings.Retrieval.Metric.String()},
		{keyTrackerBackend, string(settings.Tracker)},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Paths.Root != "" {
		if err := s.configStore.Set(keyPathsRoot, settings.Paths.Root); err != nil {
			return fmt.Errorf("save %s: %w", keyPathsRoot, err)
		}
	}
	if settings.Paths.Data != "" {
		if err := s.configStore.Set(keyPathsData, settings.Paths.Data); err != nil {
			return fmt.Errorf("save %s: %w", keyPathsData, err)
		}
	}

	if key := settings.Embedding.APIKey; key != "" && key != s.envAPIKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, key); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if key := settings.LLM.APIKey; key != "" && key != s.envAPIKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, key); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return s.configStore.Save()
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = ""
	if provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: LLM provider %q", domain.ErrInvalidInput, provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = ""
	if provider == domain.AIProviderOllama {
		settings.LLM.BaseURL = defaultOllamaURL
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that settings are usable for ingestion and chat.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: embedding provider %s is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: LLM provider %s is not configured",
			domain.ErrLLMUnavailable, settings.LLM.Provider))
	}
	c := settings.Chunking
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.MinChunkSize < 0 {
		errs = append(errs, fmt.Errorf("%w: chunking sizes %d/%d/%d",
			domain.ErrInvalidInput, c.ChunkSize, c.ChunkOverlap, c.MinChunkSize))
	}
	if settings.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval.top_k must be positive", domain.ErrInvalidInput))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// PipelineConfig returns the post-processor order and config. The chunker
// takes its sizes from the chunking section.
func (s *SettingsService) PipelineConfig() ([]string, map[string]map[string]any) {
	names := postprocessors.DefaultProcessors
	if configured := s.configStore.GetStringSlice(keyPipeline); len(configured) > 0 {
		names = configured
	}

	settings, _ := s.Get()
	configs := map[string]map[string]any{
		"chunker": {
			"chunk_size":     settings.Chunking.ChunkSize,
			"overlap":        settings.Chunking.ChunkOverlap,
			"min_chunk_size": settings.Chunking.MinChunkSize,
		},
	}
	for _, name := range names {
		cfg := s.loadProcessorConfig("pipeline." + name + ".")
		if len(cfg) == 0 {
			continue
		}
		if configs[name] == nil {
			configs[name] = make(map[string]any)
		}
		for k, v := range cfg {
			configs[name][k] = v
		}
	}
	return names, configs
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	return s.validateWith(func(v driven.AIConfigValidator, settings *domain.Settings) error {
		return v.ValidateEmbedding(&settings.Embedding)
	})
}

// ValidateLLMConfig pings the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig() error {
	return s.validateWith(func(v driven.AIConfigValidator, settings *domain.Settings) error {
		return v.ValidateLLM(&settings.LLM)
	})
}

// validateWith runs check against the current settings. Without a
// validator every configuration passes.
func (s *SettingsService) validateWith(check func(driven.AIConfigValidator, *domain.Settings) error) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return check(s.aiValidator, settings)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

// getIntOrZero honours an explicit zero.
func (s *SettingsService) getIntOrZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getMetric(defaultVal domain.Metric) domain.Metric {
	metric := domain.Metric(s.configStore.GetString(keyRetrievalMetric))
	if !metric.IsValid() {
		return defaultVal
	}
	return metric
}

func (s *SettingsService) getTrackerBackend(defaultVal domain.TrackerBackend) domain.TrackerBackend {
	switch backend := domain.TrackerBackend(s.configStore.GetString(keyTrackerBackend)); backend {
	case domain.TrackerBackendFile, domain.TrackerBackendSQLite:
		return backend
	default:
		return defaultVal
	}
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicAPIKey)
	default:
		return ""
	}
}

// loadProcessorConfig loads config keys with a given prefix into a map.
func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)
	knownKeys := []string{"chunk_size", "overlap", "min_chunk_size", "alpha_ratio", "min_length"}
	for _, key := range knownKeys {
		if val, exists := s.configStore.Get(prefix + key); exists {
			cfg[key] = val
		}
	}
	return cfg
}
