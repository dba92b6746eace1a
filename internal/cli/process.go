package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/expense-inbox/internal/app"
	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/dvloznov/expense-inbox/internal/gcs"
	"github.com/dvloznov/expense-inbox/internal/pipeline"
	"github.com/spf13/cobra"
)

// ProcessResult is the JSON output of the process command.
type ProcessResult struct {
	Object    string `json:"object"`
	Processed bool   `json:"processed"`
	Error     string `json:"error,omitempty"`
	Transient bool   `json:"transient,omitempty"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "process gs://BUCKET/KEY",
		Short: "Run the expense pipeline once against a stored email",
		Long: `Fetch a stored email and run it through the same pipeline the event
receiver uses: sender check, extraction, sheet append and reply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := gcs.ParseURI(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, log := commandContext(cmd, rootOpts)
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			log.Info().Str("object", ref.URI()).Msg("Processing email")

			handleErr := a.Orchestrator.Handle(ctx, ref)
			result := ProcessResult{Object: ref.URI(), Processed: handleErr == nil}
			text := fmt.Sprintf("Processed %s", ref.URI())
			if handleErr != nil {
				result.Error = handleErr.Error()
				result.Transient = pipeline.IsTransient(handleErr)
				text = fmt.Sprintf("Failed %s: %v", ref.URI(), handleErr)
			}

			if err := output(cmd.OutOrStdout(), rootOpts, result, text); err != nil {
				return err
			}
			return handleErr
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall time limit")

	return cmd
}
