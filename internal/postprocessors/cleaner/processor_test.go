package cleaner

import (
	"context"
	"testing"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"trims", "   hello   ", "hello"},
		{"collapses spaces and tabs", "a  \t b", "a b"},
		{"normalises CRLF", "a\r\nb\rc", "a\nb\nc"},
		{"keeps one blank line", "a\n\n\n\n\nb", "a\n\nb"},
		{"trims lines", "  a  \n   b  ", "a\nb"},
		{"drops control characters", "a\x00b\x07c", "abc"},
		{"non-breaking space", "a  b", "a b"},
		{"keeps non-ASCII letters", "café  über", "café über"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestProcessor_IsLikelyText(t *testing.T) {
	p := New()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"prose", "This is a normal sentence.", true},
		{"too short", "Page 3", false},
		{"numbers", "12 34 56 78 90 12 34", false},
		{"empty", "", false},
		{"mostly letters", "Revenue grew 12% in 2023", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsLikelyText(tt.input); got != tt.expected {
				t.Errorf("IsLikelyText(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}

	t.Run("custom thresholds", func(t *testing.T) {
		p := New(WithMinLength(0), WithAlphaRatio(0))
		if !p.IsLikelyText("42") {
			t.Error("expected permissive cleaner to accept digits")
		}
	})
}

func TestProcessor_Process(t *testing.T) {
	p := New()
	units := []domain.TextUnit{
		{Content: "  A proper paragraph   of text.  ", Metadata: domain.Metadata{Source: "a.pdf", Type: domain.UnitTypeText}},
		{Content: "17", Metadata: domain.Metadata{Source: "a.pdf", Type: domain.UnitTypeText}},
		{Content: "1 | 2\r\n3 | 4", Metadata: domain.Metadata{Source: "a.pdf", Type: domain.UnitTypeTable}},
		{Content: "   ", Metadata: domain.Metadata{Source: "a.pdf", Type: domain.UnitTypeTable}},
	}

	got, err := p.Process(context.Background(), units)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(got), got)
	}
	if got[0].Content != "A proper paragraph of text." {
		t.Errorf("unexpected text %q", got[0].Content)
	}
	if got[1].Content != "1 | 2\n3 | 4" || got[1].Metadata.Type != domain.UnitTypeTable {
		t.Errorf("table should keep rows and never be filtered, got %+v", got[1])
	}
	if p.Name() != "cleaner" {
		t.Errorf("expected name 'cleaner', got %q", p.Name())
	}
}
