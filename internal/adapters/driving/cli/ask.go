package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/services"
)

const excerptWidth = 160

var (
	askK    int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the complaint index",
	Long: `Retrieves the complaint excerpts most relevant to the question and asks
the language model to answer using only those excerpts. The answer is
followed by the complaints it cites.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "top-k", "k", 0, "number of chunks to ground the answer on")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := app()
	if err != nil {
		return err
	}
	retriever, err := a.Retriever(cmd.Context())
	if err != nil {
		return err
	}
	generator, err := a.Generator(cmd.Context())
	if err != nil {
		return err
	}

	question := args[0]
	retrieved, err := retriever.Retrieve(cmd.Context(), question, askK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	answer, err := generator.Generate(cmd.Context(), question, retrieved)
	if errors.Is(err, domain.ErrNoRelevantContext) {
		cmd.Println("No relevant complaints found for that question.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	cmd.Println()
	printSources(cmd, answer)
	return nil
}

func printSources(cmd *cobra.Command, answer *domain.Answer) {
	if len(answer.Sources) == 0 {
		return
	}
	cmd.Println("Sources:")
	for _, c := range answer.Sources {
		cmd.Printf("  [%d] Complaint %s - %s (%.2f)\n", c.Rank, c.DocumentID, c.Category, c.Score)
		cmd.Printf("      %s\n", c.Excerpt)
	}
	if answer.DroppedChunks > 0 {
		cmd.Printf("  (%d more excerpts did not fit the context budget)\n", answer.DroppedChunks)
	}
}

func excerpt(text string) string {
	return services.Excerpt(text, excerptWidth)
}
