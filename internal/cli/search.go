package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search ID",
	Short: "Show the chunks nearest to a query",
	Long: `Retrieve the chunks of index ID nearest to a query without calling the
chat model. Useful for checking what context a question would receive.

Examples:
  pdfchat search my-paper -q "evaluation metric"
  pdfchat search my-paper -q "evaluation metric" --top-k 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

// SearchResult is a simplified result for CLI output.
type SearchResult struct {
	Seq      int     `json:"seq"`
	Page     int     `json:"page"`
	Offset   int     `json:"offset"`
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, GetConfig(), withEmbedder)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.engine.Open(ctx, args[0])
	if err != nil {
		return err
	}

	chunks, err := a.engine.Search(ctx, session, searchQuery, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, len(chunks))
	for i, c := range chunks {
		results[i] = SearchResult{
			Seq:      c.Chunk.Seq,
			Page:     c.Chunk.Page,
			Offset:   c.Chunk.Offset,
			Distance: c.Distance,
			Text:     c.Chunk.Text,
		}
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), searchQuery)
	for i, r := range results {
		fmt.Printf("[%d] page %d, offset %d (distance: %.4f)\n", i+1, r.Page, r.Offset, r.Distance)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println(excerpt(r.Text, 400))
		fmt.Println()
	}
	return nil
}
