package client

import (
	"context"

	"github.com/menta2k/object-counter/pkg/types"
)

// Counter turns an uploaded image into an analysis result
type Counter interface {
	Name() string
	Count(ctx context.Context, upload types.Upload) (*types.AnalysisResult, error)
}

// VisionClient sends a prompt and a base64 image to a vision language model
// and returns the raw text reply
type VisionClient interface {
	Query(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
