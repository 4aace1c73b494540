package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".pdf"}, New().Extensions())
}

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"whitespace only", " \n \n", nil},
		{"single", "One paragraph\nwrapped.", []string{"One paragraph\nwrapped."}},
		{"blank line", "First.\n\nSecond.", []string{"First.", "Second."}},
		{"blank line with spaces", "First.\n  \t\nSecond.", []string{"First.", "Second."}},
		{"crlf", "First.\r\n\r\nSecond.", []string{"First.", "Second."}},
		{"many breaks", "\n\nFirst.\n\n\n\nSecond.\n\n", []string{"First.", "Second."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitParagraphs(tt.input))
		})
	}
}

func TestExtract_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text pretending"), 0600))

	_, err := New().Extract(context.Background(), path)
	assert.Error(t, err)
}

func TestExtract_Missing(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "none.pdf"))
	assert.Error(t, err)
}
