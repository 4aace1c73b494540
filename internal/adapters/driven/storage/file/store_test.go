package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func newLayout(t *testing.T) Layout {
	t.Helper()
	return NewLayout(t.TempDir(), "text-embedding-3-small")
}

func TestLayout_Paths(t *testing.T) {
	l := NewLayout("/data", "nomic/embed:v1")

	assert.Equal(t, filepath.Join("/data", "embeddings", "nomic%2Fembed%3Av1"), l.ModelDir())
	assert.Equal(t, filepath.Join(l.ModelDir(), "index.gob"), l.IndexPath())
	assert.Equal(t, filepath.Join("/data", ".ingest.lock"), l.LockPath())
	assert.Equal(t, filepath.Join("/data", "processed_docs", "processed_files.json"), l.TrackerPath(domain.StageExtraction))
	assert.Equal(t, filepath.Join("/data", "chunks", "processed_chunked.json"), l.TrackerPath(domain.StageChunking))
	assert.Equal(t, filepath.Join(l.ModelDir(), "processed_embedded.json"), l.TrackerPath(domain.StageEmbedding))
	assert.Equal(t, filepath.Join(l.ModelDir(), "processed_in_index.json"), l.TrackerPath(domain.StageIndex))
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my notes_v2.txt", "my notes_v2.txt"},
		{"a/b\\c", "a%2Fb%5Cc"},
		{"nomic-embed-text:latest", "nomic-embed-text%3Alatest"},
		{"100%.txt", "100%25.txt"},
		{"", "%00"},
		{".", "%2E"},
		{"..", "%2E%2E"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeName(tt.name)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "/")
			assert.NotContains(t, got, ":")
			assert.Equal(t, tt.name, nameFromSafe(got))
		})
	}
}

func TestSafeName_DistinctNamesDoNotCollide(t *testing.T) {
	names := []string{"a:b.txt", "a_b.txt", "a/b.txt", "a%3Ab.txt", "a\\b.txt", "", "_", "%00", ".", "..", "%2E"}

	seen := make(map[string]string, len(names))
	for _, name := range names {
		got := SafeName(name)
		prev, dup := seen[got]
		assert.False(t, dup, "%q and %q both map to %q", prev, name, got)
		seen[got] = name
	}
}

func TestUnitStore_ColonAndUnderscoreNamesKeptApart(t *testing.T) {
	s := NewUnitStore(newLayout(t))
	ctx := context.Background()

	colon := []domain.TextUnit{{Content: "colon", Metadata: domain.Metadata{Source: "a:b.txt", Type: domain.UnitTypeText}}}
	underscore := []domain.TextUnit{{Content: "underscore", Metadata: domain.Metadata{Source: "a_b.txt", Type: domain.UnitTypeText}}}
	require.NoError(t, s.Save(ctx, domain.StageExtraction, "a:b.txt", colon))
	require.NoError(t, s.Save(ctx, domain.StageExtraction, "a_b.txt", underscore))

	got, err := s.Load(ctx, domain.StageExtraction, "a:b.txt")
	require.NoError(t, err)
	assert.Equal(t, colon, got)

	names, err := s.List(ctx, domain.StageExtraction)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:b.txt", "a_b.txt"}, names)
}

func TestTrackerStore_MissingIsEmpty(t *testing.T) {
	s := NewTrackerStore(newLayout(t))

	ids, err := s.Load(context.Background(), domain.StageExtraction)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestTrackerStore_SaveLoad(t *testing.T) {
	l := newLayout(t)
	s := NewTrackerStore(l)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, domain.StageEmbedding, []string{"a.pdf", "b.docx"}))
	ids, err := s.Load(ctx, domain.StageEmbedding)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.docx"}, ids)

	other, err := NewTrackerStore(NewLayout(l.Root(), "other-model")).Load(ctx, domain.StageEmbedding)
	require.NoError(t, err)
	assert.Empty(t, other, "model state is isolated")
}

func TestTrackerStore_Corrupt(t *testing.T) {
	l := newLayout(t)
	path := l.TrackerPath(domain.StageChunking)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewTrackerStore(l).Load(context.Background(), domain.StageChunking)
	assert.ErrorIs(t, err, domain.ErrTrackerCorrupt)
}

func TestWriteAtomic_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, writeJSON(path, []string{"one"}))
	require.NoError(t, writeJSON(path, []string{"one", "two"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "two")
}

func TestWriteJSON_EncodeFailureKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, writeJSON(path, []string{"keep"}))

	assert.Error(t, writeJSON(path, map[string]any{"bad": make(chan int)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keep")
}

func TestUnitStore_SaveLoadList(t *testing.T) {
	l := newLayout(t)
	s := NewUnitStore(l)
	ctx := context.Background()
	units := []domain.TextUnit{{
		Content:  "Leave policy",
		Metadata: domain.Metadata{Source: "hr.pdf", Type: domain.UnitTypeText, Page: 1},
	}}

	require.NoError(t, s.Save(ctx, domain.StageExtraction, "hr.pdf", units))
	require.NoError(t, s.Save(ctx, domain.StageExtraction, "b.txt", nil))
	require.NoError(t, s.Save(ctx, domain.StageChunking, "hr.pdf", units))
	require.NoError(t, NewTrackerStore(l).Save(ctx, domain.StageExtraction, []string{"hr.pdf"}))

	got, err := s.Load(ctx, domain.StageExtraction, "hr.pdf")
	require.NoError(t, err)
	assert.Equal(t, units, got)

	_, err = os.Stat(filepath.Join(l.Root(), "chunks", "hr.pdf_chunks.json"))
	assert.NoError(t, err)

	names, err := s.List(ctx, domain.StageExtraction)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt", "hr.pdf"}, names, "tracker file is not a unit file")

	names, err = s.List(ctx, domain.StageChunking)
	require.NoError(t, err)
	assert.Equal(t, []string{"hr.pdf"}, names)
}

func TestUnitStore_LoadMissing(t *testing.T) {
	_, err := NewUnitStore(newLayout(t)).Load(context.Background(), domain.StageChunking, "nope.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnitStore_ListMissingDir(t *testing.T) {
	names, err := NewUnitStore(newLayout(t)).List(context.Background(), domain.StageExtraction)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRecordStore(t *testing.T) {
	l := newLayout(t)
	s := NewRecordStore(l)
	ctx := context.Background()

	got, err := s.Load(ctx, "hr.pdf")
	require.NoError(t, err)
	assert.Empty(t, got, "missing records file has no records")

	records := []domain.EmbeddingRecord{{
		Content:   "Leave policy",
		Embedding: []float32{0.1, 0.2},
		Metadata:  domain.Metadata{Source: "hr.pdf", Type: domain.UnitTypeText, ChunkID: 1},
	}}
	require.NoError(t, s.Save(ctx, "hr.pdf", records))
	require.NoError(t, NewTrackerStore(l).Save(ctx, domain.StageEmbedding, []string{"hr.pdf"}))

	got, err = s.Load(ctx, "hr.pdf")
	require.NoError(t, err)
	assert.Equal(t, records, got)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hr.pdf"}, names)

	_, err = os.Stat(filepath.Join(l.ModelDir(), "hr.pdf_embeddings.json"))
	assert.NoError(t, err)
}

func TestRunLock(t *testing.T) {
	l := newLayout(t)
	lock := NewRunLock(l)
	ctx := context.Background()

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)

	_, err = NewRunLock(l).Acquire(ctx)
	require.ErrorIs(t, err, domain.ErrIngestLocked)
	assert.Contains(t, err.Error(), "held by another process")

	require.NoError(t, release())
	require.NoError(t, release(), "release is idempotent")

	release, err = lock.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestRunLock_LeftoverFileDoesNotBlock(t *testing.T) {
	l := newLayout(t)
	// A killed run leaves its lock file behind but no OS lock.
	require.NoError(t, os.MkdirAll(filepath.Dir(l.LockPath()), 0700))
	require.NoError(t, os.WriteFile(l.LockPath(), []byte("4242"), 0600))

	release, err := NewRunLock(l).Acquire(context.Background())
	require.NoError(t, err, "a run resumes after a crash")
	require.NoError(t, release())
}

func TestRunLock_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := newLayout(t)
	_, err := NewRunLock(l).Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(l.LockPath())
	assert.True(t, os.IsNotExist(statErr), "nothing is created for a cancelled run")
}
