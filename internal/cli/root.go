package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"pdfchat/config"
	"pdfchat/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdfchat",
	Short: "Chat with a PDF - index a document once, share it, ask it questions",
	Long: `pdfchat splits a PDF into overlapping chunks, embeds them and stores a
searchable index under a shareable name. Anyone with the name can open the
index and hold a conversation grounded in the document.

Example usage:
  pdfchat ingest paper.pdf --name my-paper     # Index and upload a PDF
  pdfchat ask my-paper -q "What is the result?" # Ask a single question
  pdfchat chat my-paper                         # Interactive conversation`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := loadDotEnv(rootDir); err != nil {
			return err
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ResolvePaths(rootDir)

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger, err = logging.New(os.Stderr, cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to configure logging: %w", err)
		}

		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pdfchat.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadDotEnv reads dir/.env when present. Variables already set in the
// environment win.
func loadDotEnv(dir string) error {
	path := dir + string(os.PathSeparator) + ".env"
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func GetLogger() *slog.Logger {
	return logger
}
