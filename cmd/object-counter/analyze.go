package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/menta2k/object-counter/internal/backend"
	"github.com/menta2k/object-counter/internal/config"
	"github.com/menta2k/object-counter/internal/utils"
	"github.com/menta2k/object-counter/pkg/analyzer"
	"github.com/menta2k/object-counter/pkg/client"
	"github.com/menta2k/object-counter/pkg/processing"
	"github.com/menta2k/object-counter/pkg/remote"
	"github.com/menta2k/object-counter/pkg/types"
	"github.com/menta2k/object-counter/pkg/upload"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Count objects in a local image",
		Long: `Analyze selects an image the same way the upload page does, sends it to
an analysis backend and prints the count and detected objects.

Without --server the configured backend runs in-process.

Examples:
  # Analyze with the configured backend
  object-counter analyze cranes.jpg

  # Send the image to a running server
  object-counter analyze --server http://localhost:8080 cranes.jpg

  # Save the annotated image produced by a vision backend
  object-counter analyze --backend ollama --out annotated.jpg cranes.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().StringP("server", "s", "", "Base URL of an object-counter server")
	cmd.Flags().StringP("backend", "b", "", "Analysis backend: mock, remote, ollama, llamacpp or gemini")
	cmd.Flags().StringP("out", "o", "", "Write the annotated image to this path when the backend returns one")
	cmd.Flags().BoolP("json", "j", false, "Print the result as JSON")

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counter, err := newAnalyzeCounter(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	form := upload.NewForm(counter,
		upload.WithAnalyzer(analyzer.NewWithConfig(analyzer.Config{
			SupportedFormats: cfg.Upload.SupportedFormats,
			MinImageSize:     1,
		})),
		upload.WithPreviewOptions(processing.PreviewOptions{
			MaxDim:  cfg.Upload.PreviewMaxDim,
			Quality: cfg.Upload.PreviewQuality,
		}),
		upload.WithNotifier(func(n upload.Notice) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", n.Title, n.Description)
		}),
	)

	if err := form.Select(filepath.Base(path), "", data); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Analysis.Timeout)
	defer cancel()

	result, err := form.Process(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out != "" && result.AnnotatedImage != "" {
		if err := writeDataURL(out, result.AnnotatedImage); err != nil {
			return err
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(cmd.OutOrStdout(), form.Selection(), result)
	if out != "" {
		if result.AnnotatedImage != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Annotated image written to %s\n", out)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Backend returned no annotated image")
		}
	}
	return nil
}

func newAnalyzeCounter(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (client.Counter, error) {
	if serverURL, _ := cmd.Flags().GetString("server"); serverURL != "" {
		return remote.NewAPIClient(serverURL, cfg.Analysis.Timeout), nil
	}
	return backend.New(ctx, cfg)
}

func printResult(w io.Writer, sel *upload.Selection, result *types.AnalysisResult) {
	if sel != nil {
		info := sel.Preview.Info
		fmt.Fprintf(w, "File:    %s (%s, %dx%d %s)\n",
			sel.Filename, utils.FormatFileSize(int64(len(sel.Data))), info.Width, info.Height, sel.Preview.Format)
		if md := sel.Preview.Metadata; md != nil {
			if md.Camera != "" {
				fmt.Fprintf(w, "Camera:  %s\n", md.Camera)
			}
			if md.TakenAt != "" {
				fmt.Fprintf(w, "Taken:   %s\n", md.TakenAt)
			}
		}
	}
	if result.Backend != "" {
		fmt.Fprintf(w, "Backend: %s\n", result.Backend)
	}

	glyph := "🎯"
	if result.Count > 10 {
		glyph = types.FallbackIcon
	}
	fmt.Fprintf(w, "Count:   %d %s\n", result.Count, glyph)

	if len(result.Objects) == 0 {
		fmt.Fprintln(w, "Objects: none")
		return
	}
	fmt.Fprintln(w, "Objects:")
	for _, label := range result.Objects {
		fmt.Fprintf(w, "  %s %s\n", types.Icon(label), label)
	}
}

func writeDataURL(path, dataURL string) error {
	_, data, err := processing.ParseDataURL(dataURL)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write annotated image: %w", err)
	}
	return nil
}
