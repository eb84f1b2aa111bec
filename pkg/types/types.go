package types

import "strings"

// Vocabulary is the fixed, ordered set of labels an analysis may report
var Vocabulary = []string{"person", "car", "dog", "bicycle", "tree", "bird"}

var icons = map[string]string{
	"person":  "👤",
	"car":     "🚗",
	"dog":     "🐕",
	"bicycle": "🚲",
	"tree":    "🌳",
	"bird":    "🐦",
}

// FallbackIcon is shown for labels without a dedicated glyph
const FallbackIcon = "🔍"

// Upload is an image submitted for analysis
type Upload struct {
	Filename  string
	MediaType string
	Data      []byte
}

// AnalysisResult is the single contract returned to the UI by every backend
type AnalysisResult struct {
	Count          int      `json:"count"`
	Objects        []string `json:"objects"`
	AnnotatedImage string   `json:"annotated_image,omitempty"`
	Backend        string   `json:"backend,omitempty"`
}

// ErrorResponse is the body of every JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Icon returns the display glyph for a label
func Icon(label string) string {
	if icon, ok := icons[label]; ok {
		return icon
	}
	return FallbackIcon
}

// IsKnownLabel reports whether label belongs to the vocabulary
func IsKnownLabel(label string) bool {
	_, ok := icons[label]
	return ok
}

// NormalizeObjects keeps only vocabulary labels, without duplicates, in vocabulary order
func NormalizeObjects(labels []string) []string {
	present := make(map[string]bool, len(labels))
	for _, l := range labels {
		present[normalizeLabel(l)] = true
	}

	out := make([]string, 0, len(present))
	for _, v := range Vocabulary {
		if present[v] {
			out = append(out, v)
		}
	}
	return out
}

// Normalize enforces count >= 0 and objects within the vocabulary
func (r *AnalysisResult) Normalize() {
	if r.Count < 0 {
		r.Count = 0
	}
	r.Objects = NormalizeObjects(r.Objects)
}

func normalizeLabel(l string) string {
	l = strings.ToLower(strings.TrimSpace(l))
	if IsKnownLabel(l) {
		return l
	}
	// plural forms such as "birds"
	if singular := strings.TrimSuffix(l, "s"); IsKnownLabel(singular) {
		return singular
	}
	return l
}
