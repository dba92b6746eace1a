package cli

import (
	"errors"
	"fmt"

	"github.com/dvloznov/expense-inbox/internal/app"
	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/spf13/cobra"
)

// NewCheckSheetCommand creates the check-sheet command.
func NewCheckSheetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-sheet",
		Short: "Validate the ledger sheet's header row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadEnv()
			if cfg.Sheet.SpreadsheetID == "" {
				return errors.New("SHEET_ID is required")
			}

			ctx, _ := commandContext(cmd, rootOpts)

			writer, err := app.NewLedger(ctx, cfg)
			if err != nil {
				return err
			}

			header, err := writer.Validate(ctx)
			if err != nil {
				return err
			}

			return output(cmd.OutOrStdout(), rootOpts,
				map[string]any{"sheet": cfg.Sheet.Title, "header": header.String(), "valid": true},
				fmt.Sprintf("Sheet %q is valid: %s", cfg.Sheet.Title, header.String()))
		},
	}

	return cmd
}
