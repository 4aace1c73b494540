// Package tui provides the full-screen chat interface used when docchat runs
// on a terminal.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

const helpText = "enter ask  pgup/pgdn scroll  esc quit"

// answered carries the outcome of one chat turn back to the view.
type answered struct {
	resp *domain.ChatResponse
	err  error
}

// ChatView is a scrolling transcript above a question input.
type ChatView struct {
	styles  *Styles
	chat    driving.ChatService
	session string
	ctx     context.Context

	input      textinput.Model
	viewport   viewport.Model
	transcript []string

	ready   bool
	pending bool
	status  string

	// err ends the program; failed turns only show in the transcript.
	err error
}

// NewChatView creates a chat view for one session.
func NewChatView(s *Styles, chat driving.ChatService, sessionID string) *ChatView {
	if s == nil {
		s = DefaultStyles()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.CharLimit = 0
	ti.Focus()

	return &ChatView{
		styles:   s,
		chat:     chat,
		session:  sessionID,
		ctx:      context.Background(),
		input:    ti,
		viewport: viewport.New(80, 16),
	}
}

// WithContext sets the context chat turns run under.
func (v *ChatView) WithContext(ctx context.Context) *ChatView {
	v.ctx = ctx
	return v
}

// Init starts the cursor blinking.
func (v *ChatView) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles window, key and answer messages.
func (v *ChatView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)

	case answered:
		return v, v.handleAnswer(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *ChatView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
		return v, tea.Quit
	case tea.KeyEnter:
		return v, v.submit()
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	}

	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit sends the typed question. Only one turn runs at a time.
func (v *ChatView) submit() tea.Cmd {
	if v.pending {
		return nil
	}
	question := strings.TrimSpace(v.input.Value())
	switch question {
	case "":
		return nil
	case "exit", "quit":
		return tea.Quit
	}

	v.input.Reset()
	v.pending = true
	v.status = "Thinking..."
	v.appendEntry(v.styles.Prompt.Render("you> ") + question)

	chat, ctx, req := v.chat, v.ctx, domain.ChatRequest{Question: question, SessionID: v.session}
	return func() tea.Msg {
		resp, err := chat.Chat(ctx, req)
		return answered{resp: resp, err: err}
	}
}

func (v *ChatView) handleAnswer(msg answered) tea.Cmd {
	v.pending = false
	v.status = ""

	if msg.err != nil {
		if errors.Is(msg.err, domain.ErrIndexNotFound) || v.ctx.Err() != nil {
			v.err = msg.err
			return tea.Quit
		}
		// The session is intact, so the conversation goes on.
		v.appendEntry(v.styles.Error.Render("error: " + msg.err.Error()))
		return nil
	}

	entry := msg.resp.Answer
	if len(msg.resp.Sources) > 0 {
		entry += "\n" + v.styles.Muted.Render("Sources: "+FormatSources(msg.resp.Sources))
	}
	v.appendEntry(entry)
	return nil
}

func (v *ChatView) appendEntry(entry string) {
	v.transcript = append(v.transcript, entry)
	v.refresh()
}

// refresh wraps the transcript to the viewport and scrolls to the latest entry.
func (v *ChatView) refresh() {
	content := v.styles.Muted.Render("No questions yet.")
	if len(v.transcript) > 0 {
		content = strings.Join(v.transcript, "\n\n")
	}
	v.viewport.SetContent(lipgloss.NewStyle().Width(v.viewport.Width).Render(content))
	v.viewport.GotoBottom()
}

// SetDimensions fits the transcript between the header and the input.
func (v *ChatView) SetDimensions(width, height int) {
	tw, th := v.styles.Transcript.GetFrameSize()
	iw, ih := v.styles.InputField.GetFrameSize()

	// Header, blank line, input row and status line.
	reserved := 2 + 1 + ih + 1
	v.viewport.Width = max(20, width-tw)
	v.viewport.Height = max(3, height-reserved-th)
	v.input.Width = max(10, width-iw-len(v.input.Prompt)-1)
	v.refresh()
}

// View renders the chat view.
func (v *ChatView) View() string {
	if !v.ready {
		return "Initialising..."
	}

	status := v.status
	if status == "" {
		status = helpText
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("docchat")+v.styles.Muted.Render("  session "+v.session),
		"",
		v.styles.Transcript.Render(v.viewport.View()),
		v.styles.InputField.Render(v.input.View()),
		v.styles.StatusBar.Render(status),
	)
}

// Ready reports whether the view has received its dimensions.
func (v *ChatView) Ready() bool {
	return v.ready
}

// Pending reports whether a turn is in flight.
func (v *ChatView) Pending() bool {
	return v.pending
}

// Transcript returns the rendered entries so far, oldest first.
func (v *ChatView) Transcript() []string {
	return v.transcript
}

// Err returns the error that ended the session, if any.
func (v *ChatView) Err() error {
	return v.err
}
