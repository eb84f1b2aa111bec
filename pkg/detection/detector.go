package detection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/object-counter/pkg/analyzer"
	"github.com/menta2k/object-counter/pkg/client"
	"github.com/menta2k/object-counter/pkg/processing"
	"github.com/menta2k/object-counter/pkg/types"
)

// ErrInvalidReply is returned when the model reply holds no usable JSON
var ErrInvalidReply = errors.New("vision model returned no usable count")

// CountPrompt asks the model for a total count and the labels it sees
var CountPrompt = strings.TrimSpace(dedent.Dedent(fmt.Sprintf(`
	You count objects in photos.

	Return JSON only:
	{"count": 0, "objects": ["label"]}

	RULES
	- "count" is the total number of individual objects you can see that match the labels below.
	- "objects" lists which of these labels appear: %s.
	- Use only those labels, lowercase, each at most once. Do not invent other labels.
	- If nothing matches, return {"count": 0, "objects": []}.
	- JSON only. No markdown, no code fences, no comments, no trailing commas.
`, strings.Join(types.Vocabulary, ", "))))

// Options tunes how images are sent to the model
type Options struct {
	Model       string
	SendFormat  string
	SendSize    int
	SendQuality int
	Annotate    bool
}

// Detector counts objects by asking a vision language model
type Detector struct {
	name      string
	client    client.VisionClient
	opts      Options
	analyzer  *analyzer.ImageAnalyzer
	processor *processing.Processor
}

// NewDetector creates a new detector with a vision client
func NewDetector(name string, client client.VisionClient, opts Options) *Detector {
	if opts.SendQuality <= 0 {
		opts.SendQuality = 85
	}
	return &Detector{
		name:      name,
		client:    client,
		opts:      opts,
		analyzer:  analyzer.New(),
		processor: processing.NewProcessor(),
	}
}

// Name returns the backend name
func (d *Detector) Name() string {
	return d.name
}

// Count decodes the upload, queries the model and normalizes its reply
func (d *Detector) Count(ctx context.Context, upload types.Upload) (*types.AnalysisResult, error) {
	img, _, err := d.analyzer.Decode(upload.Data)
	if err != nil {
		return nil, err
	}

	imgB64, err := d.processor.PrepareImageForModel(img, d.opts.SendFormat, d.opts.SendSize, d.opts.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	raw, err := d.client.Query(ctx, d.opts.Model, CountPrompt, imgB64)
	if err != nil {
		return nil, err
	}

	result, err := ParseCountResult(raw)
	if err != nil {
		log.Warn().Str("backend", d.name).Str("reply", truncate(raw, 200)).Msg("unparseable model reply")
		return nil, err
	}
	result.Backend = d.name

	log.Debug().
		Str("backend", d.name).
		Str("model", d.opts.Model).
		Int("count", result.Count).
		Strs("objects", result.Objects).
		Msg("vision count")

	if d.opts.Annotate {
		annotated := d.processor.AnnotateCounts(d.processor.Fit(img, d.opts.SendSize), AnnotationLines(result))
		data, mediaType, err := d.processor.Encode(annotated, "jpg", d.opts.SendQuality)
		if err != nil {
			return nil, fmt.Errorf("failed to encode annotated image: %w", err)
		}
		result.AnnotatedImage = processing.DataURL(mediaType, data)
	}

	return result, nil
}

// AnnotationLines renders the banner text drawn onto annotated images
func AnnotationLines(result *types.AnalysisResult) []string {
	lines := []string{fmt.Sprintf("Count: %d", result.Count)}
	if len(result.Objects) > 0 {
		lines = append(lines, "Objects: "+strings.Join(result.Objects, ", "))
	}
	return lines
}

// ParseCountResult parses the JSON reply of the vision model
func ParseCountResult(raw string) (*types.AnalysisResult, error) {
	cleaned := sanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, ErrInvalidReply
	}

	var reply struct {
		Count   *float64 `json:"count"`
		Objects []string `json:"objects"`
	}
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if reply.Count == nil {
		return nil, fmt.Errorf("%w: missing count", ErrInvalidReply)
	}

	result := &types.AnalysisResult{
		Count:   int(math.Round(*reply.Count)),
		Objects: reply.Objects,
	}
	result.Normalize()
	return result, nil
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
