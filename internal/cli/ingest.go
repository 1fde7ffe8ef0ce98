package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"pdfchat/internal/domain"
	"pdfchat/internal/usecase"
)

var (
	ingestTitle       string
	ingestDescription string
	ingestName        string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE.pdf",
	Short: "Index a PDF and upload it under a shareable name",
	Long: `Extract the text of a PDF, split it into overlapping chunks, embed every
chunk and upload the resulting index. Documents longer than ingest.max_pages
are truncated (or rejected when ingest.reject_over_limit is set).

When --name is taken a name is generated from the file name instead.

Examples:
  pdfchat ingest paper.pdf
  pdfchat ingest paper.pdf --name my-paper --title "My paper" --description "Draft v2"`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title shown when the index is opened")
	ingestCmd.Flags().StringVar(&ingestDescription, "description", "", "document description shown when the index is opened")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "preferred index name (letters, digits, _ and -)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	path := args[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(GetRootDir(), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	a, err := newApp(ctx, cfg, withEmbedder)
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	var startTime time.Time

	progress := func(done, total int) {
		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	fmt.Printf("Reading %s...\n", filepath.Base(path))

	result, err := a.engine.IngestPDF(ctx, data, usecase.IngestRequest{
		FileName:      filepath.Base(path),
		Title:         ingestTitle,
		Description:   ingestDescription,
		PreferredName: ingestName,
		Progress:      progress,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPageLimitExceeded) {
			return fmt.Errorf("%w (max %d pages)", err, cfg.Ingest.MaxPages)
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Index:   %s\n", result.ID)
	fmt.Printf("  Pages:   %d\n", result.Pages)
	fmt.Printf("  Chunks:  %d\n", result.Chunks)

	if result.Truncated || result.NameWarning != nil {
		fmt.Printf("\nWarnings:\n")
		if result.Truncated {
			fmt.Printf("  - only the first %d pages were indexed\n", cfg.Ingest.MaxPages)
		}
		if result.NameWarning != nil {
			fmt.Printf("  - %v, using %s\n", result.NameWarning, result.ID)
		}
	}

	fmt.Printf("\nShare URL: %s\n", result.ShareURL)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
