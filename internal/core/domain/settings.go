package domain

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// providerInfo describes what a provider offers. Providers are listed in
// the order they are offered during setup.
type providerInfo struct {
	provider       AIProvider
	description    string
	local          bool
	embeddingModel string // empty when the provider has no embeddings API
	llmModel       string
}

var providers = []providerInfo{
	{AIProviderOllama, "Ollama (local)", true, "nomic-embed-text", "llama3.2"},
	{AIProviderOpenAI, "OpenAI (cloud)", false, "text-embedding-3-small", "gpt-4o-mini"},
	{AIProviderAnthropic, "Anthropic (cloud)", false, "", "claude-3-5-sonnet-latest"},
}

func (p AIProvider) info() (providerInfo, bool) {
	for _, info := range providers {
		if info.provider == p {
			return info, true
		}
	}
	return providerInfo{}, false
}

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	_, ok := p.info()
	return ok
}

// RequiresAPIKey returns true for hosted providers.
func (p AIProvider) RequiresAPIKey() bool {
	info, ok := p.info()
	return ok && !info.local
}

// IsLocal returns true if the provider runs on this machine.
func (p AIProvider) IsLocal() bool {
	info, _ := p.info()
	return info.local
}

// SupportsEmbeddings reports whether the provider can embed text.
func (p AIProvider) SupportsEmbeddings() bool {
	info, _ := p.info()
	return info.embeddingModel != ""
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	if info, ok := p.info(); ok {
		return info.description
	}
	return "Unknown"
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize bounds how many texts go into one embedding call.
	BatchSize int

	// Workers bounds how many batches are embedded in parallel.
	Workers int

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	return !e.Provider.RequiresAPIKey() || e.APIKey != ""
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is the sampling temperature for answers.
	Temperature float64

	// MaxTokens bounds the generated answer length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	return !l.Provider.RequiresAPIKey() || l.APIKey != ""
}

// ChunkingSettings holds chunker configuration. Sizes are in characters.
type ChunkingSettings struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// RetrievalSettings holds query-time configuration.
type RetrievalSettings struct {
	// TopK is the number of passages retrieved per turn.
	TopK int

	// Metric is the distance metric new indexes are built with.
	Metric Metric
}

// TrackerBackend selects where processed sets are persisted.
type TrackerBackend string

// Available tracker backends.
const (
	TrackerBackendFile   TrackerBackend = "file"
	TrackerBackendSQLite TrackerBackend = "sqlite"
)

// PathSettings locates the data folder and derived artefacts.
type PathSettings struct {
	// Root holds all derived state.
	Root string

	// Data is the folder of input documents.
	Data string
}

// Settings holds all application settings.
type Settings struct {
	Chunking  ChunkingSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Retrieval RetrievalSettings
	Paths     PathSettings
	Tracker   TrackerBackend
}

// DefaultSettings returns settings with the stock pipeline defaults.
// Paths are left empty; callers resolve them against the config directory.
func DefaultSettings() Settings {
	return Settings{
		Chunking: ChunkingSettings{
			ChunkSize:    800,
			ChunkOverlap: 100,
			MinChunkSize: 50,
		},
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOllama,
			Model:     DefaultEmbeddingModels()[AIProviderOllama],
			BatchSize: 32,
			Workers:   4,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Retrieval: RetrievalSettings{
			TopK:   5,
			Metric: MetricCosine,
		},
		Tracker: TrackerBackendFile,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, info := range providers {
		if info.embeddingModel != "" {
			out = append(out, info.provider)
		}
	}
	return out
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	out := make([]AIProvider, 0, len(providers))
	for _, info := range providers {
		out = append(out, info.provider)
	}
	return out
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, info := range providers {
		if info.embeddingModel != "" {
			out[info.provider] = info.embeddingModel
		}
	}
	return out
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	out := make(map[AIProvider]string, len(providers))
	for _, info := range providers {
		out[info.provider] = info.llmModel
	}
	return out
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
