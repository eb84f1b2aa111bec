package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/object-counter/internal/utils"
	"github.com/menta2k/object-counter/pkg/client"
	"github.com/menta2k/object-counter/pkg/types"
)

const (
	msgNoImage        = "No image provided"
	msgProcessFailed  = "Failed to process image"
	msgMethodNotAllow = "Method not allowed"

	// multipart parts beyond this are spooled to disk
	maxFormMemory = 32 << 20
)

func (s *Server) handleProcessImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, msgMethodNotAllow, http.StatusMethodNotAllowed)
		return
	}

	limit := s.cfg.Upload.MaxBytes
	if r.ContentLength > limit {
		s.respondTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	upload, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondTooLarge(w)
			return
		}
		log.Debug().Err(err).Msg("rejected upload")
		respondError(w, msgNoImage, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Analysis.Timeout)
	defer cancel()

	result, err := countSafely(ctx, s.counter, upload)
	if err != nil {
		log.Error().
			Err(err).
			Str("backend", s.counter.Name()).
			Str("file", upload.Filename).
			Msg("error processing image")
		respondError(w, msgProcessFailed, http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("backend", s.counter.Name()).
		Str("file", upload.Filename).
		Str("size", utils.FormatFileSize(int64(len(upload.Data)))).
		Int("count", result.Count).
		Strs("objects", result.Objects).
		Msg("image processed")

	respondJSON(w, result, http.StatusOK)
}

// readUpload extracts the "image" multipart field
func readUpload(r *http.Request) (types.Upload, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return types.Upload{}, err
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		return types.Upload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return types.Upload{}, err
	}

	filename := utils.SanitizeFilename(header.Filename)
	return types.Upload{
		Filename:  filename,
		MediaType: utils.DetectMediaType(filename, header.Header.Get("Content-Type"), data),
		Data:      data,
	}, nil
}

// countSafely runs the counter and turns a panic into an error
func countSafely(ctx context.Context, counter client.Counter, upload types.Upload) (result *types.AnalysisResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("backend panic: %v", rec)
		}
	}()

	result, err = counter.Count(ctx, upload)
	if err == nil && result == nil {
		err = errors.New("backend returned no result")
	}
	return result, err
}

func (s *Server) respondTooLarge(w http.ResponseWriter) {
	respondError(w, fmt.Sprintf("Image exceeds the %s upload limit", utils.FormatFileSize(s.cfg.Upload.MaxBytes)), http.StatusRequestEntityTooLarge)
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, types.ErrorResponse{Error: message}, status)
}
