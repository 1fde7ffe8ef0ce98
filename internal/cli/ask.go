package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	askQuestion   string
	askJSON       bool
	askMaxExcerpt int
)

var askCmd = &cobra.Command{
	Use:   "ask ID",
	Short: "Ask a single question about an index",
	Long: `Open the index named ID, answer one question from its most relevant
chunks and print the answer with its source excerpts.

Examples:
  pdfchat ask my-paper -q "What dataset was used?"
  pdfchat ask my-paper -q "Summarize the method" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().IntVar(&askMaxExcerpt, "max-excerpt", 600, "truncate source excerpts to this many characters (0 = full)")
	askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, GetConfig(), withEmbedder|withChat)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.engine.Open(ctx, args[0])
	if err != nil {
		return err
	}

	answer, err := a.engine.Ask(ctx, session, askQuestion)
	if err != nil {
		return err
	}

	if askJSON {
		output, err := json.MarshalIndent(struct {
			Index    string   `json:"index"`
			Question string   `json:"question"`
			Answer   string   `json:"answer"`
			Sources  []string `json:"sources"`
		}{session.IndexID, askQuestion, answer.Text, answer.Sources}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	return renderAnswer(os.Stdout, answer, askMaxExcerpt)
}
