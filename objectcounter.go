// Package objectcounter counts and labels objects in photos.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		objectcounter "github.com/menta2k/object-counter"
//	)
//
//	func main() {
//		// Mock backend; use NewWithBackend for real inference
//		oc := objectcounter.New()
//
//		report, err := oc.CountFile(context.Background(), "cranes.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("%d objects in a %dx%d image\n",
//			report.Result.Count, report.Info.Width, report.Info.Height)
//		for _, label := range report.Result.Objects {
//			fmt.Println(objectcounter.Icon(label), label)
//		}
//	}
//
// The package consists of these main components:
//
// 1. Analyzer (pkg/analyzer): decodes and validates JPEG, PNG, GIF and WebP images
// 2. Processing (pkg/processing): previews, data URLs, EXIF summaries and count overlays
// 3. Upload (pkg/upload): the select, process and reset flow of the upload page
// 4. Backends: mock (pkg/mock), remote inference (pkg/remote) and vision
// language models (pkg/detection with pkg/ollama, pkg/llamacpp, pkg/gemini),
// optionally behind a result cache (pkg/cache)
//
// The object-counter command serves the upload page and the
// /api/process-image endpoint, and analyzes local files.
package objectcounter

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/menta2k/object-counter/pkg/analyzer"
	"github.com/menta2k/object-counter/pkg/client"
	"github.com/menta2k/object-counter/pkg/mock"
	"github.com/menta2k/object-counter/pkg/processing"
	"github.com/menta2k/object-counter/pkg/types"
	"github.com/menta2k/object-counter/pkg/upload"
)

// Version of the object counter library
const Version = "1.0.0"

// ObjectCounter provides a high-level interface for counting objects in images
type ObjectCounter struct {
	analyzer *analyzer.ImageAnalyzer
	backend  client.Counter
	preview  processing.PreviewOptions
}

// New creates an ObjectCounter backed by the mock analysis backend
func New() *ObjectCounter {
	return NewWithBackend(mock.New())
}

// NewWithBackend creates an ObjectCounter that sends images to backend
func NewWithBackend(backend client.Counter) *ObjectCounter {
	return &ObjectCounter{
		analyzer: analyzer.New(),
		backend:  backend,
		preview:  processing.DefaultPreviewOptions(),
	}
}

// Report is the outcome of counting objects in one image
type Report struct {
	Filename string                `json:"filename"`
	Info     analyzer.ImageInfo    `json:"info"`
	Format   string                `json:"format"`
	Metadata *processing.Metadata  `json:"metadata,omitempty"`
	Result   *types.AnalysisResult `json:"result"`
}

// Backend returns the name of the analysis backend
func (oc *ObjectCounter) Backend() string {
	return oc.backend.Name()
}

// Count analyzes image bytes. filename and mediaType may be empty; the media
// type is then derived from the extension or the content.
func (oc *ObjectCounter) Count(ctx context.Context, filename, mediaType string, data []byte) (*Report, error) {
	form := upload.NewForm(oc.backend,
		upload.WithAnalyzer(oc.analyzer),
		upload.WithPreviewOptions(oc.preview),
	)

	if err := form.Select(filename, mediaType, data); err != nil {
		return nil, err
	}

	result, err := form.Process(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	preview := form.Selection().Preview
	return &Report{
		Filename: filename,
		Info:     preview.Info,
		Format:   preview.Format,
		Metadata: preview.Metadata,
		Result:   result,
	}, nil
}

// CountFile reads and analyzes an image file
func (oc *ObjectCounter) CountFile(ctx context.Context, path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return oc.Count(ctx, filepath.Base(path), "", data)
}

// CountImage encodes img as PNG and analyzes it
func (oc *ObjectCounter) CountImage(ctx context.Context, img image.Image) (*Report, error) {
	data, mediaType, err := processing.NewProcessor().Encode(img, "png", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return oc.Count(ctx, "image.png", mediaType, data)
}

// GetImageInfo returns basic information about an image
func (oc *ObjectCounter) GetImageInfo(img image.Image) analyzer.ImageInfo {
	return oc.analyzer.GetImageInfo(img)
}

// Icon returns the display glyph for a label
func Icon(label string) string {
	return types.Icon(label)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
