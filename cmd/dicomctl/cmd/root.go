package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sorenlund/dicom-lossless/pkg/logging"
)

// NewRoot builds the dicomctl command tree.
func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	root := &cobra.Command{
		Use:   "dicomctl",
		Short: "parse and decode DICOM files",
		Long:  "dicomctl parses DICOM files, projects their metadata, and decodes pixel data (including JPEG Lossless) to a displayable raster.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevelFlag, _ := cmd.Flags().GetString("log-level")
			var level slog.Level
			if err := level.UnmarshalText([]byte(strings.ToUpper(logLevelFlag))); err != nil {
				level = slog.LevelInfo
			}

			var w = os.Stdout
			if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
				slog.SetDefault(logging.Logger(logging.NewRotatingWriter(logFile), true, level))
				return
			}
			slog.SetDefault(logging.Logger(w, false, level))
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}

	root.AddCommand(
		NewVersionCmd(gitsha),
		NewMetadataCmd(ctx),
		NewDecodeCmd(ctx),
	)

	pf := root.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "rotate logs to this path instead of stdout")
	return root
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, sub := range cmd.Commands() {
		printCommandTree(sub, indent+1)
	}
}

// NewVersionCmd reports the build's git SHA.
func NewVersionCmd(gitsha string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the build's git SHA",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(gitsha)
		},
	}
}

// openInput resolves the "uri" flag convention shared by decode/metadata:
// "-" for stdin, an http(s) URL, a file:// URI, or a bare path.
func openInput(ctx context.Context, uri string) (io.ReadCloser, error) {
	uri = strings.TrimPrefix(uri, "file://")
	switch {
	case uri == "-":
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(uri, "http"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", uri, err)
		}
		return resp.Body, nil
	default:
		return os.Open(uri)
	}
}
