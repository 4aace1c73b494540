package tui

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// FormatSources lists each distinct source once, in retrieval order.
func FormatSources(units []domain.TextUnit) string {
	seen := make(map[string]bool, len(units))
	var parts []string
	for _, u := range units {
		label := SourceLabel(u.Metadata)
		if seen[label] {
			continue
		}
		seen[label] = true
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

// SourceLabel names a passage's file, with its page when it has one.
func SourceLabel(m domain.Metadata) string {
	if m.Page > 0 {
		return fmt.Sprintf("%s p.%d", m.Source, m.Page)
	}
	return m.Source
}
