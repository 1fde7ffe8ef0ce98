package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"pdfchat/internal/usecase"
)

var checkNameCmd = &cobra.Command{
	Use:   "check-name NAME",
	Short: "Check whether an index name can be used",
	Long: `Report whether NAME is a valid, unused index name.

Examples:
  pdfchat check-name my-paper`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckName,
}

func init() {
	rootCmd.AddCommand(checkNameCmd)
}

func runCheckName(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]

	a, err := newApp(ctx, GetConfig(), 0)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.engine.CheckName(ctx, name)
	if err != nil {
		return err
	}

	switch status {
	case usecase.NameInvalid:
		fmt.Printf("%q is invalid: use only letters, digits, underscores and hyphens\n", name)
	case usecase.NameTaken:
		fmt.Printf("%q is already taken\n", name)
	default:
		fmt.Printf("%q is available\n", name)
	}
	return nil
}
