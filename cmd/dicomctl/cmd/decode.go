package cmd

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sorenlund/dicom-lossless/pkg/dicom"
	"github.com/sorenlund/dicom-lossless/pkg/pixelnorm"
)

// NewDecodeCmd decodes a DICOM file's pixel data and writes it out as a
// PNG. PNG encoding itself is delegated to the standard library's
// image/png package, as the core's pixel decoding is the only concern in
// scope here.
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "decode a DICOM file's pixel data to a PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			if uri == "" {
				return fmt.Errorf("a file path or --uri is required")
			}
			outPath, _ := cmd.Flags().GetString("out")
			if outPath == "" {
				outPath = "frame.png"
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

			_, ds, ts, err := dicom.Parse(buf)
			if err != nil {
				slog.ErrorContext(ctx, "parse failed", slog.String("uri", uri), slog.Any("error", err))
				return err
			}

			img, err := pixelnorm.Normalize(ds, ts)
			if err != nil {
				slog.ErrorContext(ctx, "decode failed", slog.String("uri", uri), slog.Any("error", err))
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer f.Close()

			gray := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
			for y := 0; y < img.Height; y++ {
				for x := 0; x < img.Width; x++ {
					gray.SetGray(x, y, color.Gray{Y: img.Pixels[y*img.Width+x]})
				}
			}
			if err := png.Encode(f, gray); err != nil {
				return fmt.Errorf("encoding PNG: %w", err)
			}

			slog.InfoContext(ctx, "decoded frame", slog.String("out", outPath), slog.Int("width", img.Width), slog.Int("height", img.Height))
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "DICOM file path or URI to decode")
	pf.StringP("out", "o", "", "output PNG path (default frame.png)")
	return cmd
}
