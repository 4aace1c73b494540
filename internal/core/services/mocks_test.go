package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// --- Embedding ---

// mockEmbedder derives a small deterministic vector from each text.
type mockEmbedder struct {
	dims     int
	calls    atomic.Int32
	texts    atomic.Int32
	failOn   string
	embedErr error

	// short drops the last vector of each batch when set.
	short bool
}

func (m *mockEmbedder) vector(text string) []float32 {
	v := []float32{
		float32(len(text)),
		float32(strings.Count(text, "a")),
		float32(strings.Count(text, "e")),
		1,
	}
	if m.dims > 0 {
		v = v[:m.dims]
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	m.texts.Add(int32(len(texts)))
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if m.failOn != "" && strings.Contains(t, m.failOn) {
			return nil, errors.New("provider rejected batch")
		}
		out = append(out, m.vector(t))
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return m.dims }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// --- Vector index ---

// mockIndex returns canned hits and records the queries it saw.
type mockIndex struct {
	hits    []domain.ScoredUnit
	err     error
	queries [][]float32
	ks      []int
}

func (m *mockIndex) Search(_ context.Context, query []float32, k int) ([]domain.ScoredUnit, error) {
	m.queries = append(m.queries, query)
	m.ks = append(m.ks, k)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.hits) > k {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

func (m *mockIndex) Len() int { return len(m.hits) }

// --- Collaborators for chat ---

type mockReformulator struct {
	rewrite  string
	err      error
	calls    int
	question string
	history  []domain.Turn
}

func (m *mockReformulator) Reformulate(_ context.Context, question string, history []domain.Turn) (string, error) {
	m.calls++
	m.question = question
	m.history = append([]domain.Turn(nil), history...)
	if m.err != nil {
		return "", m.err
	}
	return m.rewrite, nil
}

// mockGenerator answers from its passages or fails on selected calls.
type mockGenerator struct {
	answers  []string
	failCall int
	calls    int
	passages [][]domain.TextUnit
	history  [][]domain.Turn
}

func (m *mockGenerator) Answer(_ context.Context, question string, history []domain.Turn, passages []domain.TextUnit) (string, error) {
	m.calls++
	m.passages = append(m.passages, passages)
	m.history = append(m.history, append([]domain.Turn(nil), history...))
	if m.failCall == m.calls {
		return "", errors.New("model timed out")
	}
	if len(m.answers) >= m.calls {
		return m.answers[m.calls-1], nil
	}
	return "answer to " + question, nil
}

// --- LLM and prompts ---

type mockLLM struct {
	reply    string
	err      error
	messages [][]driven.ChatMessage
	opts     []driven.ChatOptions
}

func (m *mockLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	return m.reply, m.err
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.messages = append(m.messages, messages)
	m.opts = append(m.opts, opts)
	return m.reply, m.err
}

func (m *mockLLM) ModelName() string         { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
}

func (m *mockPromptStore) Reload() {}

// --- Config ---

type mockConfigStore struct {
	values map[string]any
	saved  int
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.values[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	s, _ := m.values[key].([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error  { m.saved++; return nil }
func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return "mock.toml" }

// --- Ingestion inputs ---

// mockSource lists a fixed set of files.
type mockSource struct {
	mu    sync.Mutex
	files []driven.SourceFile
}

func (m *mockSource) add(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.files = append(m.files, driven.SourceFile{Name: n, Path: filepath.Join("/data", n)})
	}
}

func (m *mockSource) List(context.Context) ([]driven.SourceFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.SourceFile(nil), m.files...), nil
}

func (m *mockSource) Watch(context.Context) (<-chan driven.SourceFile, error) {
	return nil, errors.New("watch not supported")
}

// mockExtractor returns canned units per file name.
type mockExtractor struct {
	mu      sync.Mutex
	content map[string][]domain.TextUnit
	fail    map[string]error
	calls   map[string]int
}

func newMockExtractor() *mockExtractor {
	return &mockExtractor{
		content: make(map[string][]domain.TextUnit),
		fail:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (m *mockExtractor) text(name string, paragraphs ...string) {
	for _, p := range paragraphs {
		m.content[name] = append(m.content[name], domain.TextUnit{
			Content:  p,
			Metadata: domain.Metadata{Source: name, Type: domain.UnitTypeText},
		})
	}
}

func (m *mockExtractor) Extensions() []string { return []string{".txt"} }

func (m *mockExtractor) Extract(_ context.Context, path string) ([]domain.TextUnit, error) {
	name := filepath.Base(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	if err := m.fail[name]; err != nil {
		return nil, err
	}
	return m.content[name], nil
}

// mockRegistry routes .txt files to one extractor.
type mockRegistry struct {
	ext driven.Extractor
}

func (m *mockRegistry) Register(e driven.Extractor) { m.ext = e }

func (m *mockRegistry) For(path string) (driven.Extractor, error) {
	if !m.Supports(path) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, path)
	}
	return m.ext, nil
}

func (m *mockRegistry) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// --- Tracker backends ---

// flakyTrackerStore wraps a store and fails selected operations.
type flakyTrackerStore struct {
	driven.TrackerStore
	loadErr map[domain.Stage]error
	saveErr map[domain.Stage]error
	saves   atomic.Int32
}

func (s *flakyTrackerStore) Load(ctx context.Context, stage domain.Stage) ([]string, error) {
	if err := s.loadErr[stage]; err != nil {
		return nil, err
	}
	return s.TrackerStore.Load(ctx, stage)
}

func (s *flakyTrackerStore) Save(ctx context.Context, stage domain.Stage, ids []string) error {
	s.saves.Add(1)
	if err := s.saveErr[stage]; err != nil {
		return err
	}
	return s.TrackerStore.Save(ctx, stage, ids)
}
