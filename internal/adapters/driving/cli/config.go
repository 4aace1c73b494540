package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and configure the embedding and LLM providers and other options.

Settings live in config.toml under the config directory. Keys not set there
fall back to defaults; API keys may also come from OPENAI_API_KEY and
ANTHROPIC_API_KEY.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup",
	Long:  `Configure the embedding provider and then the LLM provider step by step.`,
	RunE:  runConfigSetup,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the provider that embeds chunks and questions.

Embeddings and the index are kept per model, so switching models triggers a
re-embed on the next ingest and leaves the previous model's index in place.`,
	RunE: runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the provider that rewrites follow-up questions and generates answers.`,
	RunE:  runConfigLLM,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetupCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := settings()
	if err != nil {
		return err
	}

	s, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	paths, err := resolvePaths(s.Paths)
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Paths]")
	cmd.Printf("  Root: %s\n", paths.Root)
	cmd.Printf("  Data: %s\n", paths.Data)
	cmd.Printf("  Tracker: %s\n", s.Tracker)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size: %d\n", s.Chunking.ChunkSize)
	cmd.Printf("  Overlap: %d\n", s.Chunking.ChunkOverlap)
	cmd.Printf("  Minimum size: %d\n", s.Chunking.MinChunkSize)
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, s.Embedding.Provider, s.Embedding.Model, s.Embedding.BaseURL, s.Embedding.APIKey,
		s.Embedding.IsConfigured())
	cmd.Printf("  Batch size: %d, workers: %d\n", s.Embedding.BatchSize, s.Embedding.Workers)
	if s.Embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %g requests/s\n", s.Embedding.RequestsPerSecond)
	}
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, s.LLM.Provider, s.LLM.Model, s.LLM.BaseURL, s.LLM.APIKey, s.LLM.IsConfigured())
	cmd.Printf("  Temperature: %g, max tokens: %d\n", s.LLM.Temperature, s.LLM.MaxTokens)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", s.Retrieval.TopK)
	cmd.Printf("  Metric: %s\n", s.Retrieval.Metric)
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docchat config setup' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runConfigSetup(cmd *cobra.Command, _ []string) error {
	cmd.Println("docchat Setup")
	cmd.Println("=============")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	cmd.Println("Run 'docchat ingest' to index the data folder.")
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

// providerChoice is what the user picked for one provider slot.
type providerChoice struct {
	provider domain.AIProvider
	model    string
	apiKey   string
}

// chooseProvider prompts for provider, model and, where needed, an API key.
// A blank key defers to the provider's environment variable.
func chooseProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	kind string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) providerChoice {
	cmd.Printf("Select %s Provider\n", kind)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	choice := providerChoice{provider: providers[idx-1]}

	defaultModel := defaults[choice.provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	choice.model = readLine(reader)
	if choice.model == "" {
		choice.model = defaultModel
	}

	if choice.provider.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use the environment): ")
		choice.apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}
	return choice
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	svc, err := settings()
	if err != nil {
		return err
	}

	c := chooseProvider(cmd, reader, "Embedding", domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())
	if err := svc.SetEmbeddingProvider(c.provider, c.model, c.apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := svc.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", c.provider.Description(), c.model)
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	svc, err := settings()
	if err != nil {
		return err
	}

	c := chooseProvider(cmd, reader, "LLM", domain.AllLLMProviders(), domain.DefaultLLMModels())
	if err := svc.SetLLMProvider(c.provider, c.model, c.apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := svc.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", c.provider.Description(), c.model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal, otherwise a plain line.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
