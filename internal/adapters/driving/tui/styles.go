package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colour palette for the chat view.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#7C3AED"), // Purple
		Secondary: lipgloss.Color("#06B6D4"), // Cyan
		Muted:     lipgloss.Color("#6C7086"),
		Error:     lipgloss.Color("#F38BA8"),
		Border:    lipgloss.Color("#45475A"),
	}
}

// Styles contains the pre-configured lipgloss styles of the chat view.
type Styles struct {
	// Title renders the header.
	Title lipgloss.Style

	// Prompt renders the "you>" marker in front of questions.
	Prompt lipgloss.Style

	// Muted renders sources and help text.
	Muted lipgloss.Style

	// Error renders failed turns.
	Error lipgloss.Style

	// Transcript frames the scrolling conversation.
	Transcript lipgloss.Style

	// InputField frames the question input.
	InputField lipgloss.Style

	// StatusBar renders the bottom line.
	StatusBar lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Prompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Transcript: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Primary).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}
