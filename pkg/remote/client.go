// Package remote talks to analysis services over HTTP: an external
// predict-image inference server, and this project's own process-image API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/object-counter/pkg/processing"
	"github.com/menta2k/object-counter/pkg/types"
)

const userAgent = "object-counter/1.0"

// PredictClient calls an inference server that accepts a multipart "file"
// field and answers with either an annotated image or a JSON result
type PredictClient struct {
	httpClient *resty.Client
	url        string
}

// NewPredictClient creates a client for the given predict-image URL
func NewPredictClient(url string, timeout time.Duration) *PredictClient {
	return &PredictClient{
		httpClient: newHTTPClient(timeout),
		url:        url,
	}
}

// Name returns the backend name
func (c *PredictClient) Name() string {
	return "remote"
}

// Count sends the upload to the inference server
func (c *PredictClient) Count(ctx context.Context, upload types.Upload) (*types.AnalysisResult, error) {
	res, err := handleError(c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", uploadFilename(upload), bytes.NewReader(upload.Data)).
		Post(c.url))
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(res.Header().Get("Content-Type"))
	log.Debug().
		Str("url", c.url).
		Str("contentType", mediaType).
		Int("bytes", len(res.Body())).
		Msg("inference response")

	var result types.AnalysisResult
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		// the blob carries its counts as drawn text only
		result.AnnotatedImage = processing.DataURL(mediaType, res.Body())
	case mediaType == "application/json":
		if err := json.Unmarshal(res.Body(), &result); err != nil {
			return nil, fmt.Errorf("failed to decode inference response: %w", err)
		}
	default:
		return nil, fmt.Errorf("unexpected inference response type %q", mediaType)
	}

	result.Normalize()
	result.Backend = c.Name()
	return &result, nil
}

// APIClient calls the process-image endpoint served by this project
type APIClient struct {
	httpClient *resty.Client
}

// NewAPIClient creates a client for a server rooted at baseURL
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		httpClient: newHTTPClient(timeout).SetBaseURL(strings.TrimSuffix(baseURL, "/")),
	}
}

// Name returns the backend name
func (c *APIClient) Name() string {
	return "api"
}

// Count posts the upload as the "image" field and decodes the JSON result
func (c *APIClient) Count(ctx context.Context, upload types.Upload) (*types.AnalysisResult, error) {
	result := &types.AnalysisResult{}
	apiErr := &types.ErrorResponse{}

	res, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("image", uploadFilename(upload), bytes.NewReader(upload.Data)).
		SetResult(result).
		SetError(apiErr).
		Post("/api/process-image")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		if apiErr.Error != "" {
			return nil, fmt.Errorf("server error (status: %d): %s", res.StatusCode(), apiErr.Error)
		}
		return nil, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return result, nil
}

// Health checks the /health endpoint of the server
func (c *APIClient) Health(ctx context.Context) error {
	_, err := handleError(c.httpClient.R().SetContext(ctx).Get("/health"))
	return err
}

func newHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetDebug(false).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)
}

func uploadFilename(upload types.Upload) string {
	if upload.Filename != "" {
		return upload.Filename
	}
	return "image.jpg"
}

// handleError converts failing responses (>399 status code) into errors.
// Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
