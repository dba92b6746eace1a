package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/dvloznov/expense-inbox/internal/gcs"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// UploadOptions holds flags for the upload command.
type UploadOptions struct {
	Bucket string
	Prefix string
	Object string
}

// objectKey picks the key for an uploaded file. Without an explicit name the
// key is random, like the keys the mail service writes.
func (o UploadOptions) objectKey(filePath string) string {
	name := o.Object
	if name == "" {
		name = uuid.NewString() + filepath.Ext(filePath)
	}
	return o.Prefix + name
}

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := UploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Store a local .eml in the inbox bucket",
		Long: `Upload a raw email to the inbox bucket the way the mail service would.
The object-created trigger then runs the pipeline on it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Bucket == "" {
				return errors.New("--bucket is required")
			}
			if opts.Prefix == "" {
				opts.Prefix = config.LoadEnv().Storage.ObjectKeyPrefix
			}

			ctx, log := commandContext(cmd, rootOpts)

			client, err := storage.NewClient(ctx)
			if err != nil {
				return fmt.Errorf("create storage client: %w", err)
			}
			defer client.Close()

			ref := gcs.ObjectRef{Bucket: opts.Bucket, Key: opts.objectKey(args[0])}

			log.Info().
				Str("file", args[0]).
				Str("object", ref.URI()).
				Msg("Uploading email to GCS")

			if err := gcs.NewUploader(client).UploadFile(ctx, ref, args[0]); err != nil {
				return err
			}

			return output(cmd.OutOrStdout(), rootOpts,
				map[string]string{"file": args[0], "object": ref.URI()},
				fmt.Sprintf("Uploaded %s to %s", args[0], ref.URI()))
		},
	}

	cmd.Flags().StringVar(&opts.Bucket, "bucket", "", "inbox bucket name (required)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "object key prefix (defaults to OBJECT_KEY_PREFIX)")
	cmd.Flags().StringVar(&opts.Object, "object", "", "object name under the prefix (defaults to a random id)")

	return cmd
}
