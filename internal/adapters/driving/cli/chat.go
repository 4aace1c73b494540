package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

var (
	chatSession string
	chatPlain   bool
)

var (
	promptColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	sourceColor = color.New(color.Faint).SprintFunc()
)

// chatUI and stdinIsTerminal are replaced in tests.
var (
	chatUI          = tui.RunChat
	stdinIsTerminal = isTerminal
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents",
	Long: `Starts an interactive conversation over the indexed documents.
Follow-up questions are rewritten against the conversation so far before
retrieval. Type 'exit' or 'quit' to leave.

On a terminal the conversation runs full screen; --plain keeps it to simple
lines. Questions can also be piped in, one per line.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id (default: a new random id)")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use the line interface even on a terminal")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	rt, err := runtimeFor(cmd, true)
	if err != nil {
		return err
	}
	if rt.chat == nil {
		return errors.New("chat service not configured")
	}

	sessionID := chatSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	in := cmd.InOrStdin()
	interactive := stdinIsTerminal(in)
	if interactive && !chatPlain {
		return explain(chatUI(cmd.Context(), rt.chat, sessionID, in, cmd.OutOrStdout()))
	}
	return chatLines(cmd, rt, sessionID, in, interactive)
}

// chatLines reads one question per line until EOF or exit.
func chatLines(cmd *cobra.Command, rt *runtime, sessionID string, in io.Reader, interactive bool) error {
	if interactive {
		cmd.Printf("Session %s. Type 'exit' to quit.\n\n", sessionID)
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			cmd.Print(promptColor("you> "))
		}
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		resp, err := rt.chat.Chat(cmd.Context(), domain.ChatRequest{Question: question, SessionID: sessionID})
		if err != nil {
			if errors.Is(err, domain.ErrIndexNotFound) || cmd.Context().Err() != nil {
				return explain(err)
			}
			// The turn failed but the session is intact; keep the loop going.
			cmd.PrintErrf("error: %v\n", err)
			continue
		}
		printAnswer(cmd, resp)
	}
	return scanner.Err()
}

// printAnswer writes the answer followed by its sources.
func printAnswer(cmd *cobra.Command, resp *domain.ChatResponse) {
	cmd.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		cmd.Println(sourceColor("Sources: " + tui.FormatSources(resp.Sources)))
	}
	cmd.Println()
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
