package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// --- Settings ---

type mockSettingsService struct {
	settings domain.Settings

	validateErr      error
	validateEmbedErr error
	validateLLMErr   error

	embedCalls []providerChoice
	llmCalls   []providerChoice
}

var _ driving.SettingsService = (*mockSettingsService)(nil)

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultSettings()}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.Settings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedCalls = append(m.embedCalls, providerChoice{p, model, apiKey})
	return nil
}

func (m *mockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llmCalls = append(m.llmCalls, providerChoice{p, model, apiKey})
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.Settings { return domain.DefaultSettings() }

func (m *mockSettingsService) PipelineConfig() ([]string, map[string]map[string]any) {
	return nil, nil
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.validateEmbedErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.validateLLMErr }

// --- Ingest ---

type mockIngestService struct {
	mu     sync.Mutex
	report *domain.IngestReport
	err    error
	runs   int
	stages []domain.Stage

	// ran receives after every Run when set.
	ran chan struct{}
}

var _ driving.IngestService = (*mockIngestService)(nil)

func (m *mockIngestService) Run(context.Context) (*domain.IngestReport, error) {
	m.mu.Lock()
	m.runs++
	m.mu.Unlock()
	if m.ran != nil {
		m.ran <- struct{}{}
	}
	return m.report, m.err
}

func (m *mockIngestService) RunStage(_ context.Context, stage domain.Stage) (*domain.StageReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
	for i := range m.report.Stages {
		if m.report.Stages[i].Stage == stage {
			r := m.report.Stages[i]
			return &r, m.err
		}
	}
	return &domain.StageReport{Stage: stage}, m.err
}

func (m *mockIngestService) Status() driving.IngestStatus {
	return driving.IngestStatus{LastReport: m.report}
}

func (m *mockIngestService) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

func sampleReport() *domain.IngestReport {
	return &domain.IngestReport{
		Stages: []domain.StageReport{
			{Stage: domain.StageExtraction, Processed: 2, Added: 5, Failed: []domain.ItemError{
				{Item: "broken.pdf", Err: errors.New("malformed xref table")},
			}},
			{Stage: domain.StageChunking, Processed: 2, Added: 9},
			{Stage: domain.StageEmbedding, Processed: 2, Added: 9},
			{Stage: domain.StageIndex, Processed: 2, Added: 9},
		},
		Duration: 1500 * time.Millisecond,
	}
}

// --- Chat ---

type mockChatService struct {
	requests []domain.ChatRequest
	answer   string
	sources  []domain.TextUnit

	// errs maps a question to the error its turn fails with.
	errs map[string]error
}

var _ driving.ChatService = (*mockChatService)(nil)

func (m *mockChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if err := m.errs[req.Question]; err != nil {
		return nil, err
	}
	answer := m.answer
	if answer == "" {
		answer = "answer to " + req.Question
	}
	return &domain.ChatResponse{Answer: answer, Sources: m.sources}, nil
}

func (m *mockChatService) History(string) []domain.Turn { return nil }

// --- Search ---

type mockSearchService struct {
	query   string
	limit   int
	results []domain.ScoredUnit
	err     error
}

var _ driving.SearchService = (*mockSearchService)(nil)

func (m *mockSearchService) Search(_ context.Context, query string, limit int) ([]domain.ScoredUnit, error) {
	m.query = query
	m.limit = limit
	return m.results, m.err
}

// --- Source ---

type mockSource struct {
	files   []driven.SourceFile
	changes chan driven.SourceFile
}

var _ driven.DocumentSource = (*mockSource)(nil)

func (m *mockSource) List(context.Context) ([]driven.SourceFile, error) {
	return m.files, nil
}

func (m *mockSource) Watch(ctx context.Context) (<-chan driven.SourceFile, error) {
	if m.changes == nil {
		m.changes = make(chan driven.SourceFile)
	}
	return m.changes, nil
}

// --- Helpers ---

func unit(source string, page int, content string) domain.TextUnit {
	return domain.TextUnit{
		Content:  content,
		Metadata: domain.Metadata{Source: source, Page: page, Type: domain.UnitTypeText, ChunkID: 1},
	}
}

// useRuntime installs rt for the next command and resets shared state.
func useRuntime(t *testing.T, rt *runtime) {
	t.Helper()
	prevSettings, prevOpen := settingsService, openRuntime
	current = rt
	settingsService = newMockSettings()
	openRuntime = func(context.Context, driving.SettingsService, bool) (*runtime, error) {
		return nil, errors.New("runtime should not be rebuilt")
	}
	resetFlags()
	t.Cleanup(func() {
		current = nil
		settingsService, openRuntime = prevSettings, prevOpen
		resetFlags()
	})
}

func resetFlags() {
	verbose = false
	ingestStage = ""
	chatSession, chatPlain = "", false
	askSession, askJSON = "", false
	searchLimit, searchJSON = 0, false
	mcpAddr = ""
	watchDebounce = 2 * time.Second
	rootCmd.SetIn(nil)
	rootCmd.SetArgs(nil)
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}
