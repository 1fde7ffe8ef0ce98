package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"pdfchat/internal/domain"
)

var chatMaxExcerpt int

var chatCmd = &cobra.Command{
	Use:   "chat ID",
	Short: "Hold a conversation about an index",
	Long: `Open the index named ID and answer questions read from standard input
until EOF or "exit". Earlier questions and answers stay in the conversation.

Examples:
  pdfchat chat my-paper`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().IntVar(&chatMaxExcerpt, "max-excerpt", 300, "truncate source excerpts to this many characters (0 = full)")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	a, err := newApp(ctx, cfg, withEmbedder|withChat)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.engine.Open(ctx, args[0])
	if err != nil {
		return err
	}

	if err := renderSession(os.Stdout, SessionData{
		Metadata: session.Metadata,
		Chunks:   session.Index().Len(),
		ShareURL: cfg.ShareURL(session.IndexID),
	}); err != nil {
		return err
	}
	fmt.Println("\nAsk a question (\"exit\" to quit).")

	return chatLoop(os.Stdin, os.Stdout, func(question string) (domain.Answer, error) {
		return a.engine.Ask(ctx, session, question)
	})
}

// chatLoop reads one question per line from in and writes answers to out.
// A failed turn is reported and the loop continues.
func chatLoop(in io.Reader, out io.Writer, ask func(string) (domain.Answer, error)) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := ask(question)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				fmt.Fprintln(out, "The service is rate limiting requests, wait a moment and try again.")
				continue
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		fmt.Fprintln(out)
		if err := renderAnswer(out, answer, chatMaxExcerpt); err != nil {
			return err
		}
	}
}
