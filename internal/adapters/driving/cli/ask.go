package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var (
	askSession string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Long: `Answers one question from the indexed documents and exits.
The answer is followed by the documents it was grounded on.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session id (default: a new random id)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

// askOutput is the JSON form of an answer.
type askOutput struct {
	SessionID string `json:"session_id"`
	*domain.ChatResponse
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	rt, err := runtimeFor(cmd, true)
	if err != nil {
		return err
	}
	if rt.chat == nil {
		return errors.New("chat service not configured")
	}

	sessionID := askSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp, err := rt.chat.Chat(cmd.Context(), domain.ChatRequest{Question: question, SessionID: sessionID})
	if err != nil {
		return explain(fmt.Errorf("ask failed: %w", err))
	}

	if askJSON {
		if resp.Sources == nil {
			resp.Sources = []domain.TextUnit{}
		}
		data, err := json.MarshalIndent(askOutput{SessionID: sessionID, ChatResponse: resp}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, resp)
	return nil
}
