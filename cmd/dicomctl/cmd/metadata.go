package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sorenlund/dicom-lossless/pkg/dicom"
	"github.com/sorenlund/dicom-lossless/pkg/metadata"
)

// NewMetadataCmd prints the projected metadata record for a DICOM file.
func NewMetadataCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "print a DICOM file's projected metadata as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			if uri == "" {
				return fmt.Errorf("a file path or --uri is required")
			}

			in, err := openInput(ctx, uri)
			if err != nil {
				return fmt.Errorf("opening %s: %w", uri, err)
			}
			defer in.Close()

			buf, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading %s: %w", uri, err)
			}

			_, ds, _, err := dicom.Parse(buf)
			if err != nil {
				slog.ErrorContext(ctx, "parse failed", slog.String("uri", uri), slog.Any("error", err))
				return err
			}

			rec := metadata.Project(ds)
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "DICOM file path or URI to parse")
	return cmd
}
