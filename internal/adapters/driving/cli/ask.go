package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

var (
	askSelection string
	askFilter    string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the passages most relevant to the question and asks the LLM to
answer from them alone. The answer is followed by the sources it was
grounded on. When nothing relevant is indexed a fixed fallback answer is
returned instead of calling the LLM.

Use --selection to ask about a passage of text, and --filter to restrict
retrieval, e.g. --filter ros2 or --filter "module=ros2|gazebo,section=Launch".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSelection, "selection", "s", "", "selected text the question refers to")
	askCmd.Flags().StringVarP(&askFilter, "filter", "f", "", "metadata filter (module or field=v1|v2,...)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

// answerOutput is the JSON form of an answer.
type answerOutput struct {
	Answer   string          `json:"answer"`
	Sources  []domain.Source `json:"sources"`
	Fallback bool            `json:"fallback"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	query, err := buildQuery(strings.Join(args, " "), askSelection, askFilter)
	if err != nil {
		return err
	}

	if err := wire(needAnswers); err != nil {
		return err
	}
	if queryService == nil {
		return errors.New("query service not configured")
	}

	answer, err := queryService.Ask(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		sources := answer.Sources
		if sources == nil {
			sources = []domain.Source{}
		}
		data, err := json.MarshalIndent(answerOutput{Answer: answer.Text, Sources: sources, Fallback: answer.Fallback}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if len(answer.Sources) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range answer.Sources {
		cmd.Printf("  [%d] %s\n", i+1, formatSource(src.Title, src.SourcePath, src.Section))
	}
	return nil
}

// buildQuery validates the question and parses the filter before any
// service is wired.
func buildQuery(question, selection, filter string) (domain.Query, error) {
	query := domain.Query{Question: question, SelectedText: selection}
	if filter != "" {
		f, err := domain.ParseMetadataFilter(filter)
		if err != nil {
			return domain.Query{}, err
		}
		query.Filter = f
	}
	if err := query.Validate(); err != nil {
		return domain.Query{}, err
	}
	return query, nil
}

func formatSource(title, sourcePath, section string) string {
	s := fmt.Sprintf("%s (%s)", title, sourcePath)
	if section != "" {
		s += " > " + section
	}
	return s
}
