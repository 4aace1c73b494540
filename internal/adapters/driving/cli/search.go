package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// snippetLength bounds the passage preview in table output.
const snippetLength = 200

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Retrieves the passages closest to the query from the vector index,
without generating an answer. Useful to check what chat will see.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 0, "maximum number of results (default: retrieval.top_k)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	rt, err := runtimeFor(cmd, false)
	if err != nil {
		return err
	}
	if rt.search == nil {
		return errors.New("search service not configured")
	}

	results, err := rt.search.Search(cmd.Context(), query, searchLimit)
	if err != nil {
		return explain(fmt.Errorf("search failed: %w", err))
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredUnit) error {
	if results == nil {
		results = []domain.ScoredUnit{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredUnit) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		meta := results[i].Unit.Metadata
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, tui.SourceLabel(meta), results[i].Score)
		if meta.Type == domain.UnitTypeTable {
			cmd.Printf("      Type: table\n")
		}
		if snippet := snippet(results[i].Unit.Content); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

// snippet flattens content to one line and truncates it on a rune boundary.
func snippet(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	runes := []rune(s)
	if len(runes) <= snippetLength {
		return s
	}
	return string(runes[:snippetLength]) + "..."
}
