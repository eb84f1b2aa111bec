package processing

import (
	"github.com/menta2k/object-counter/pkg/analyzer"
)

// Preview is a displayable representation of a selected image
type Preview struct {
	DataURL  string             `json:"data_url"`
	Format   string             `json:"format"`
	Info     analyzer.ImageInfo `json:"info"`
	Metadata *Metadata          `json:"metadata,omitempty"`
}

// PreviewOptions controls thumbnail generation
type PreviewOptions struct {
	// MaxDim bounds the long side of the preview; 0 keeps the original bytes
	MaxDim  int
	Quality int
}

// DefaultPreviewOptions returns the options used by the upload form
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{MaxDim: 1024, Quality: 85}
}

// BuildPreview decodes image bytes and derives a preview. Images that already
// fit are embedded verbatim, larger ones are downscaled and re-encoded.
func (p *Processor) BuildPreview(ia *analyzer.ImageAnalyzer, data []byte, mediaType string, opts PreviewOptions) (*Preview, error) {
	img, format, err := ia.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := ia.ValidateImage(img); err != nil {
		return nil, err
	}

	preview := &Preview{
		Format:   format,
		Info:     ia.GetImageInfo(img),
		Metadata: ExtractMetadata(data),
	}

	fitted := p.Fit(img, opts.MaxDim)
	if fitted == img {
		preview.DataURL = DataURL(mediaType, data)
		return preview, nil
	}

	thumbFormat := "jpg"
	if format == "png" || format == "gif" {
		thumbFormat = "png"
	}
	thumb, thumbType, err := p.Encode(fitted, thumbFormat, opts.Quality)
	if err != nil {
		return nil, err
	}
	preview.DataURL = DataURL(thumbType, thumb)
	return preview, nil
}
