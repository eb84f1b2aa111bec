package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/menta2k/object-counter/internal/backend"
	"github.com/menta2k/object-counter/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload page and the process-image API",
		Long: `Serve starts the HTTP server.

Endpoints:
  GET  /                    upload page
  GET  /health              health check
  POST /api/process-image   analyze the multipart "image" field

Examples:
  # Mock results on :8080
  object-counter serve

  # Forward uploads to a predict-image inference server
  INFERENCE_URL=http://localhost:8000/predict-image/ object-counter serve --backend remote

  # Count with a local vision model
  object-counter serve --backend ollama --addr :9000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", "", "Listen address (overrides config and PORT)")
	cmd.Flags().StringP("backend", "b", "", "Analysis backend: mock, remote, ollama, llamacpp or gemini")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counter, err := backend.New(ctx, cfg)
	if err != nil {
		return err
	}

	return server.New(cfg, counter).Run(ctx)
}
