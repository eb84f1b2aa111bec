// Package backend builds the analysis backend selected in the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/object-counter/internal/config"
	"github.com/menta2k/object-counter/pkg/cache"
	"github.com/menta2k/object-counter/pkg/client"
	"github.com/menta2k/object-counter/pkg/detection"
	"github.com/menta2k/object-counter/pkg/gemini"
	"github.com/menta2k/object-counter/pkg/llamacpp"
	"github.com/menta2k/object-counter/pkg/mock"
	"github.com/menta2k/object-counter/pkg/ollama"
	"github.com/menta2k/object-counter/pkg/remote"
)

// New creates the Counter named by cfg.Analysis.Backend. Real backends are
// wrapped in a result cache when caching is enabled; the mock never is.
func New(ctx context.Context, cfg *config.Config) (client.Counter, error) {
	var counter client.Counter

	switch cfg.Analysis.Backend {
	case config.BackendMock:
		log.Info().Msg("using mock analysis backend")
		return mock.New(), nil
	case config.BackendRemote:
		counter = remote.NewPredictClient(cfg.Remote.URL, cfg.Analysis.Timeout)
	case config.BackendOllama, config.BackendLlamaCpp, config.BackendGemini:
		vision, model, err := newVisionClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		counter = detection.NewDetector(cfg.Analysis.Backend, vision, detection.Options{
			Model:       model,
			SendFormat:  cfg.Vision.SendFormat,
			SendSize:    cfg.Vision.SendSize,
			SendQuality: cfg.Vision.SendQuality,
			Annotate:    cfg.Analysis.Annotate,
		})
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Analysis.Backend)
	}

	log.Info().
		Str("backend", counter.Name()).
		Bool("cache", cfg.Analysis.Cache).
		Msg("using analysis backend")

	if cfg.Analysis.Cache {
		counter = cache.New(counter, cfg.Analysis.CacheSize)
	}
	return counter, nil
}

func newVisionClient(ctx context.Context, cfg *config.Config) (client.VisionClient, string, error) {
	model := cfg.Vision.Model

	switch cfg.Analysis.Backend {
	case config.BackendOllama:
		c, err := ollama.NewClient(cfg.Vision.OllamaURL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, model, nil
	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.Vision.LlamaCppURL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, model, nil
	default:
		c, err := gemini.NewClient(ctx, cfg.Vision.GeminiAPIKey)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Gemini client: %w", err)
		}
		// the local model default means nothing to Gemini
		if model == "" || model == config.Default().Vision.Model {
			model = gemini.DefaultModel
		}
		return c, model, nil
	}
}
