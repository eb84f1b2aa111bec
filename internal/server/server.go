// Package server serves the upload UI and the process-image API.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/object-counter/internal/config"
	"github.com/menta2k/object-counter/internal/utils"
	"github.com/menta2k/object-counter/pkg/client"
	"github.com/menta2k/object-counter/pkg/types"
)

// ProcessImagePath is the analysis endpoint used by the UI
const ProcessImagePath = "/api/process-image"

//go:embed web/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Title        string
	Backend      string
	MaxUpload    string
	Endpoint     string
	Icons        map[string]string
	FallbackIcon string
}

// Server serves the upload UI and dispatches uploads to a Counter
type Server struct {
	cfg     *config.Config
	counter client.Counter
	handler http.Handler
}

// New creates a server for cfg that analyzes uploads with counter
func New(cfg *config.Config, counter client.Counter) *Server {
	s := &Server{cfg: cfg, counter: counter}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc(ProcessImagePath, s.handleProcessImage)

	s.handler = recoverer(accessLog(cors(cfg.Server.AllowedOrigins, mux)))
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("addr", ln.Addr().String()).
			Str("backend", s.counter.Name()).
			Msg("server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	icons := make(map[string]string, len(types.Vocabulary))
	for _, label := range types.Vocabulary {
		icons[label] = types.Icon(label)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, indexData{
		Title:        "Sandhill Crane Object Detector",
		Backend:      s.counter.Name(),
		MaxUpload:    utils.FormatFileSize(s.cfg.Upload.MaxBytes),
		Endpoint:     ProcessImagePath,
		Icons:        icons,
		FallbackIcon: types.FallbackIcon,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to render index")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok", "backend": s.counter.Name()}, http.StatusOK)
}
