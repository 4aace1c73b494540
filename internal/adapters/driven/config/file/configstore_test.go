package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore(t *testing.T) {
	t.Run("explicit dir", func(t *testing.T) {
		store, dir := newStore(t)
		assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	})

	t.Run("DOCCHAT_HOME", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(EnvHome, home)

		store, err := NewConfigStore("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "config.toml"), store.Path())
	})

	t.Run("creates nested dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		_, err := NewConfigStore(dir)
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("dir is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(path, nil, 0600))

		_, err := NewConfigStore(path)
		assert.Error(t, err)
	})

	t.Run("corrupt file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[retrieval\ntop_k = "), 0600))

		_, err := NewConfigStore(dir)
		assert.Error(t, err)
	})
}

func TestDefaultDir_FallsBackToHome(t *testing.T) {
	t.Setenv(EnvHome, "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docchat"), dir)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("llm.model", "llama3.2"))
	require.NoError(t, store.Set("retrieval.top_k", int64(7)))
	require.NoError(t, store.Set("chunking.size", 800))
	require.NoError(t, store.Set("llm.temperature", 0.2))
	require.NoError(t, store.Set("embedding.requests_per_second", int64(5)))
	require.NoError(t, store.Set("watch.enabled", true))
	require.NoError(t, store.Set("pipeline.processors", []string{"cleaner", "chunker"}))

	assert.Equal(t, "llama3.2", store.GetString("llm.model"))
	assert.Empty(t, store.GetString("retrieval.top_k"), "wrong type reads as zero")

	assert.Equal(t, 7, store.GetInt("retrieval.top_k"))
	assert.Equal(t, 800, store.GetInt("chunking.size"))
	assert.Zero(t, store.GetInt("llm.model"))

	assert.InDelta(t, 0.2, store.GetFloat("llm.temperature"), 1e-9)
	assert.InDelta(t, 5.0, store.GetFloat("embedding.requests_per_second"), 1e-9, "integers are widened")
	assert.Zero(t, store.GetFloat("llm.model"))

	assert.True(t, store.GetBool("watch.enabled"))
	assert.False(t, store.GetBool("llm.model"))

	assert.Equal(t, []string{"cleaner", "chunker"}, store.GetStringSlice("pipeline.processors"))
	assert.Nil(t, store.GetStringSlice("llm.model"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_SaveWritesTables(t *testing.T) {
	store, dir := newStore(t)
	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("embedding.model", "text-embedding-3-small"))
	require.NoError(t, store.Set("retrieval.top_k", int64(3)))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[embedding]")
	assert.Contains(t, string(data), "[retrieval]")
	assert.NotContains(t, string(data), "'embedding.provider'")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", reloaded.GetString("embedding.provider"))
	assert.Equal(t, 3, reloaded.GetInt("retrieval.top_k"))
}

func TestConfigStore_SaveIsAtomic(t *testing.T) {
	store, dir := newStore(t)
	require.NoError(t, store.Set("llm.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "keys are kept private")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "config.toml", entries[0].Name())
}

func TestConfigStore_SaveError(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Set("llm.model", "llama3.2"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("llm.model", "mistral"))
	assert.Error(t, store.Save())
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `[paths]
data = "/srv/handbook"

[pipeline]
processors = ["cleaner", "chunker"]

[pipeline.cleaner]
alpha_ratio = 0.4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "/srv/handbook", store.GetString("paths.data"))
	assert.Equal(t, []string{"cleaner", "chunker"}, store.GetStringSlice("pipeline.processors"))
	assert.InDelta(t, 0.4, store.GetFloat("pipeline.cleaner.alpha_ratio"), 1e-9)
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := store.Get("paths.root")
	assert.False(t, ok)
}

func TestConfigStore_EnvOverrides(t *testing.T) {
	store, dir := newStore(t)
	require.NoError(t, store.Set("retrieval.top_k", int64(5)))
	require.NoError(t, store.Set("llm.model", "llama3.2"))

	t.Setenv("DOCCHAT_RETRIEVAL_TOP_K", "8")
	t.Setenv("DOCCHAT_LLM_MODEL", "mistral")
	t.Setenv("DOCCHAT_LLM_TEMPERATURE", "0.1")
	t.Setenv("DOCCHAT_PIPELINE_PROCESSORS", `["chunker"]`)
	t.Setenv("DOCCHAT_PATHS_DATA", "/srv/docs")

	assert.Equal(t, 8, store.GetInt("retrieval.top_k"), "environment wins over the file")
	assert.Equal(t, "mistral", store.GetString("llm.model"))
	assert.InDelta(t, 0.1, store.GetFloat("llm.temperature"), 1e-9)
	assert.Equal(t, []string{"chunker"}, store.GetStringSlice("pipeline.processors"))
	assert.Equal(t, "/srv/docs", store.GetString("paths.data"), "unparsable values are strings")

	require.NoError(t, store.Save())
	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "mistral", "overrides are not persisted")
	assert.Contains(t, string(data), "llama3.2")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "DOCCHAT_RETRIEVAL_TOP_K", EnvKey("retrieval.top_k"))
	assert.Equal(t, "DOCCHAT_PIPELINE_CLEANER_MIN_LENGTH", EnvKey("pipeline.cleaner.min-length"))
}

func TestParseEnvValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"12", int64(12)},
		{"0.5", 0.5},
		{"true", true},
		{`"quoted"`, "quoted"},
		{"plain text", "plain text"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseEnvValue(tt.raw))
		})
	}
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("retrieval.top_k", int64(n))
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.top_k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("retrieval.top_k")
	assert.True(t, ok)
}

func TestNestMap_ValueWinsOverTable(t *testing.T) {
	nested := nestMap(map[string]any{
		"a":   "scalar",
		"a.b": 1,
		"c.d": 2,
	})
	assert.Equal(t, "scalar", nested["a"])
	assert.Equal(t, map[string]any{"d": 2}, nested["c"])
	assert.Equal(t, map[string]any{"a": "scalar", "c.d": 2}, flattenMap(nested, ""))
}

func TestConfigStore_GetString_NumericOverride(t *testing.T) {
	store, _ := newStore(t)
	t.Setenv("DOCCHAT_LLM_MODEL", "3.5")

	assert.Equal(t, "3.5", store.GetString("llm.model"))
	assert.InDelta(t, 3.5, store.GetFloat("llm.model"), 1e-9)
}
