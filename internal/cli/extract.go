package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/expense-inbox/internal/app"
	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/dvloznov/expense-inbox/internal/ledger"
	"github.com/dvloznov/expense-inbox/internal/mailparse"
	"github.com/spf13/cobra"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Show what the model extracts from a local .eml",
		Long: `Parse a local email and run the extractor on its text body.
Prints the row that would be appended. Nothing is written and no reply is sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode = strings.ToLower(strings.TrimSpace(mode))
			switch mode {
			case "", config.ExtractionStructured, config.ExtractionTemplate:
			default:
				return fmt.Errorf("invalid mode %q: must be %q or %q", mode, config.ExtractionStructured, config.ExtractionTemplate)
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			msg, err := mailparse.Parse(raw)
			if err != nil {
				return err
			}
			if err := msg.Validate(); err != nil {
				return err
			}

			cfg := config.LoadEnv()
			if mode != "" {
				cfg.Model.ExtractionMode = mode
			}
			if cfg.Model.APIKey == "" && cfg.Model.Project == "" {
				return errors.New("one of GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT is required")
			}

			loc, err := ledger.LoadLocation(cfg.Sheet.Timezone)
			if err != nil {
				return err
			}

			ctx, _ := commandContext(cmd, rootOpts)

			ext, err := app.NewExtractor(ctx, cfg.Model)
			if err != nil {
				return err
			}

			expense, err := ext.Extract(ctx, msg.Text)
			if err != nil {
				return err
			}

			row := ledger.NewRow(expense, msg.Date, loc)
			return output(cmd.OutOrStdout(), rootOpts, rowJSON(row), renderRow(row))
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "extraction protocol (structured|template), defaults to EXTRACTION_MODE")

	return cmd
}

// rowJSON keys the row by its sheet column titles.
func rowJSON(row ledger.Row) map[string]string {
	out := make(map[string]string)
	for _, f := range row.Fields() {
		out[f.Name] = f.Value
	}
	return out
}

func renderRow(row ledger.Row) string {
	var b strings.Builder
	for _, f := range row.Fields() {
		fmt.Fprintf(&b, "%-14s %s\n", f.Name+":", f.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}
