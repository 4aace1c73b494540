package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

// capture routes output into a buffer for the duration of the test.
func capture(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		log     func()
		want    string
	}{
		{"debug verbose", true, func() { Debug("stage %s", "chunks") }, "[DEBUG] stage chunks\n"},
		{"debug quiet", false, func() { Debug("stage %s", "chunks") }, ""},
		{"info verbose", true, func() { Info("embedded %d texts", 12) }, "[INFO] embedded 12 texts\n"},
		{"info quiet", false, func() { Info("embedded %d texts", 12) }, ""},
		{"section verbose", true, func() { Section("Ingest") }, "\n=== Ingest ===\n"},
		{"section quiet", false, func() { Section("Ingest") }, ""},
		{"warn quiet", false, func() { Warn("extraction failed for %s", "a.pdf") }, "[WARN] extraction failed for a.pdf\n"},
		{"warn verbose", true, func() { Warn("slow provider") }, "[WARN] slow provider\n"},
		{"error quiet", false, func() { Error("index %s missing", "index.gob") }, "[ERROR] index index.gob missing\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose)
			tt.log()
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestConcurrentWrites(t *testing.T) {
	buf := capture(t, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Debug("worker %d", n)
			Warn("worker %d", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 40, "every line is written whole")
	for _, line := range lines {
		assert.Regexp(t, `^\[(DEBUG|WARN)\] worker \d+$`, line)
	}
}
