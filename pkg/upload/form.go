// Package upload models the image upload form: a selected file with its
// preview, a processing flag and the last analysis result.
//
// The form moves Empty -> Previewing -> Processing -> Previewing. Reset
// returns it to Empty from any state; a result that arrives after a Reset
// is discarded.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/object-counter/internal/utils"
	"github.com/menta2k/object-counter/pkg/analyzer"
	"github.com/menta2k/object-counter/pkg/client"
	"github.com/menta2k/object-counter/pkg/processing"
	"github.com/menta2k/object-counter/pkg/types"
)

var (
	// ErrInvalidFileType is returned when the selected file is not an image
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrNoFile is returned by Process when nothing is selected
	ErrNoFile = errors.New("no file selected")
	// ErrBusy is returned by Process while another analysis is outstanding
	ErrBusy = errors.New("analysis already in progress")
)

// State is the phase of the form
type State int

const (
	Empty State = iota
	Previewing
	Processing
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Previewing:
		return "previewing"
	case Processing:
		return "processing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Notice is a user-facing warning
type Notice struct {
	Title       string
	Description string
}

// InvalidFileTypeNotice is raised when a non-image file is selected
var InvalidFileTypeNotice = Notice{
	Title:       "Invalid file type",
	Description: "Please upload an image file.",
}

// Selection is the currently selected file
type Selection struct {
	Filename  string
	MediaType string
	Data      []byte
	Preview   *processing.Preview
}

// Upload returns the selection as analysis input
func (s *Selection) Upload() types.Upload {
	return types.Upload{Filename: s.Filename, MediaType: s.MediaType, Data: s.Data}
}

// Form holds the upload state. It is safe for concurrent use.
type Form struct {
	counter   client.Counter
	analyzer  *analyzer.ImageAnalyzer
	processor *processing.Processor
	opts      processing.PreviewOptions
	notify    func(Notice)

	mu         sync.Mutex
	selection  *Selection
	result     *types.AnalysisResult
	processing bool
	generation uint64
}

// Option configures a Form
type Option func(*Form)

// WithPreviewOptions sets thumbnail generation options
func WithPreviewOptions(opts processing.PreviewOptions) Option {
	return func(f *Form) { f.opts = opts }
}

// WithNotifier sets the callback that receives user-facing warnings
func WithNotifier(notify func(Notice)) Option {
	return func(f *Form) { f.notify = notify }
}

// WithAnalyzer sets the image analyzer used to decode selections
func WithAnalyzer(ia *analyzer.ImageAnalyzer) Option {
	return func(f *Form) { f.analyzer = ia }
}

// NewForm creates an empty form that sends images to counter
func NewForm(counter client.Counter, options ...Option) *Form {
	f := &Form{
		counter:   counter,
		analyzer:  analyzer.New(),
		processor: processing.NewProcessor(),
		opts:      processing.DefaultPreviewOptions(),
		notify:    func(Notice) {},
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// State returns the current phase
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

func (f *Form) stateLocked() State {
	switch {
	case f.processing:
		return Processing
	case f.selection != nil:
		return Previewing
	default:
		return Empty
	}
}

// Selection returns the selected file, or nil
func (f *Form) Selection() *Selection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selection
}

// Result returns the last analysis result, or nil
func (f *Form) Result() *types.AnalysisResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// IsProcessing reports whether an analysis is outstanding
func (f *Form) IsProcessing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processing
}

// Select stores a new file and derives its preview. Non-image files raise
// InvalidFileTypeNotice and leave the form untouched. Selecting while an
// analysis is outstanding discards that analysis.
func (f *Form) Select(filename, declaredType string, data []byte) error {
	mediaType := utils.DetectMediaType(filename, declaredType, data)
	if !utils.IsImageMediaType(mediaType) {
		f.notify(InvalidFileTypeNotice)
		return fmt.Errorf("%w: %s", ErrInvalidFileType, mediaType)
	}

	preview, err := f.processor.BuildPreview(f.analyzer, data, mediaType, f.opts)
	if err != nil {
		return fmt.Errorf("failed to build preview: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.selection = &Selection{
		Filename:  filename,
		MediaType: mediaType,
		Data:      data,
		Preview:   preview,
	}
	f.result = nil
	f.processing = false
	f.generation++

	log.Debug().
		Str("file", filename).
		Str("mediaType", mediaType).
		Str("size", utils.FormatFileSize(int64(len(data)))).
		Msg("image selected")
	return nil
}

// Process sends the selected file to the counter. On failure the selection
// and any previous result stay as they were.
func (f *Form) Process(ctx context.Context) (*types.AnalysisResult, error) {
	f.mu.Lock()
	if f.selection == nil {
		f.mu.Unlock()
		return nil, ErrNoFile
	}
	if f.processing {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.processing = true
	gen := f.generation
	upload := f.selection.Upload()
	f.mu.Unlock()

	result, err := f.counter.Count(ctx, upload)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generation == gen {
		f.processing = false
	}

	if err != nil {
		log.Error().Err(err).Str("backend", f.counter.Name()).Msg("error processing image")
		return nil, err
	}
	if f.generation != gen {
		log.Debug().Msg("discarding result for a reset form")
		return result, nil
	}

	f.result = result
	if result.AnnotatedImage != "" && f.selection != nil {
		preview := *f.selection.Preview
		preview.DataURL = result.AnnotatedImage
		selection := *f.selection
		selection.Preview = &preview
		f.selection = &selection
	}
	return result, nil
}

// Reset clears the selection, the result and the processing flag
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selection = nil
	f.result = nil
	f.processing = false
	f.generation++
}
