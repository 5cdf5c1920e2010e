package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// snippetLength bounds the content preview in table output.
const snippetLength = 160

var (
	retrieveLimit     int
	retrieveThreshold float64
	retrieveFilter    string
	retrieveJSON      bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Show the passages retrieved for a question",
	Long: `Embeds the question and searches the vector index without calling the
LLM. Useful for checking what evidence an answer would be grounded on and
for tuning the score threshold.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")
	retrieveCmd.Flags().Float64Var(&retrieveThreshold, "threshold", 0, "minimum score (default: configured threshold)")
	retrieveCmd.Flags().StringVarP(&retrieveFilter, "filter", "f", "", "metadata filter (module or field=v1|v2,...)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

// evidenceOutput is the JSON form of one retrieval result.
type evidenceOutput struct {
	Score float64 `json:"score"`
	domain.Payload
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	query, err := buildQuery(strings.Join(args, " "), "", retrieveFilter)
	if err != nil {
		return err
	}

	opts := driving.RetrieveOptions{Limit: retrieveLimit}
	if cmd.Flags().Changed("threshold") {
		threshold := retrieveThreshold
		opts.ScoreThreshold = &threshold
	}

	if err := wire(needRetrieval); err != nil {
		return err
	}
	if retriever == nil {
		return errors.New("retriever not configured")
	}

	results, err := retriever.Retrieve(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		out := make([]evidenceOutput, len(results))
		for i, r := range results {
			out[i] = evidenceOutput{Score: r.Score, Payload: r.Payload}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results above the score threshold.")
		return nil
	}
	for i, r := range results {
		p := r.Payload
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, formatSource(p.Title, p.Source, p.Section), r.Score)
		cmd.Printf("      chunk %d/%d, module %s\n", p.ChunkIndex+1, p.TotalChunks, p.Module)
		cmd.Printf("      %s\n\n", snippet(p.Content, snippetLength))
	}
	return nil
}

// snippet flattens whitespace and cuts s to at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
