// Package cli implements the expense-inbox command-line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dvloznov/expense-inbox/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	Format   string // "text" | "json"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "expense-inbox",
		Short: "Turn forwarded receipts into spreadsheet rows",
		Long: `Tools for the expense inbox: process a stored email by hand,
upload an .eml to the inbox bucket, try the extractor on a local file,
and check the ledger sheet's header.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewProcessCommand(opts))
	cmd.AddCommand(NewUploadCommand(opts))
	cmd.AddCommand(NewExtractCommand(opts))
	cmd.AddCommand(NewCheckSheetCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// commandContext returns the command context carrying a console logger on stderr.
func commandContext(cmd *cobra.Command, opts *RootOptions) (context.Context, zerolog.Logger) {
	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
	if lvl, err := zerolog.ParseLevel(opts.LogLevel); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, log), log
}

// output writes v as indented JSON, or the text rendering for text format.
func output(w io.Writer, opts *RootOptions, v any, text string) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
