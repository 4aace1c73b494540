package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// RunChat shows the chat view on the alternate screen until the user quits.
// It returns the error that ended the session, if any.
func RunChat(ctx context.Context, chat driving.ChatService, sessionID string, in io.Reader, out io.Writer) error {
	if chat == nil {
		return ErrMissingChatService
	}

	view := NewChatView(nil, chat, sessionID).WithContext(ctx)
	p := tea.NewProgram(view,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run chat view: %w", err)
	}
	return view.Err()
}
