package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open ID",
	Short: "Download an index and show its details",
	Long: `Fetch the index named ID into the local cache and print its metadata.

Examples:
  pdfchat open my-paper`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	a, err := newApp(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.engine.Open(ctx, args[0])
	if err != nil {
		return err
	}

	return renderSession(os.Stdout, SessionData{
		Metadata: session.Metadata,
		Chunks:   session.Index().Len(),
		ShareURL: cfg.ShareURL(session.IndexID),
	})
}
