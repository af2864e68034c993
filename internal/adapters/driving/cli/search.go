package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creditrust/credirag/internal/core/domain"
)

var (
	searchK    int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find complaint excerpts similar to a query",
	Long: `Embeds the query and returns the most similar complaint chunks from the
index, ranked by cosine similarity. No language model is called.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 0, "number of chunks to return (default from settings)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := app()
	if err != nil {
		return err
	}
	retriever, err := a.Retriever(cmd.Context())
	if err != nil {
		return err
	}

	result, err := retriever.Retrieve(cmd.Context(), args[0], searchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	outputSearchTable(cmd, result)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, result *domain.RetrievalResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, result *domain.RetrievalResult) {
	if result.Empty() {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for _, hit := range result.Hits {
		// Format: [N] Complaint ID - Product (Score)
		cmd.Printf("  [%d] Complaint %s - %s (%.2f)\n", hit.Rank, hit.Chunk.DocumentID, hit.Chunk.Category, hit.Score)
		cmd.Printf("      %s\n", excerpt(hit.Chunk.Text))
		cmd.Println()
	}
}
