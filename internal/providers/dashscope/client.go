// Package dashscope integrates a DashScope-style text-to-image vendor. The
// vendor only returns a still image, so the adapter hands the image to the
// compositor and returns finished video bytes from Submit; it never queues.
package dashscope

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"promoforge/internal/concept"
	"promoforge/internal/infra"
	"promoforge/internal/providers/video"
)

const (
	providerName  = "dashscope"
	synthesisPath = "/services/aigc/text2image/image-synthesis"
)

// Composer is the slice of the compositor this adapter needs.
type Composer interface {
	ComposeFromImage(ctx context.Context, image []byte, profile concept.Profile, req video.Request) ([]byte, error)
}

// Options configures the DashScope adapter.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Composer   Composer
}

// Adapter implements video.Adapter on top of a still-image vendor.
type Adapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
	composer   Composer
}

// New constructs a DashScope adapter.
func New(opts Options) *Adapter {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	model := opts.Model
	if model == "" {
		model = "wanx2.1-t2i-turbo"
	}
	return &Adapter{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      model,
		httpClient: httpClient,
		logger:     opts.Logger,
		composer:   opts.Composer,
	}
}

// Name identifies the provider in attempt logs and artifact metadata.
func (a *Adapter) Name() string { return providerName }

// Configured reports whether credentials and a compositor are present; the
// adapter cannot deliver video without either.
func (a *Adapter) Configured() bool {
	return a != nil && a.apiKey != "" && a.composer != nil
}

type synthesisRequest struct {
	Model      string          `json:"model"`
	Input      synthesisInput  `json:"input"`
	Parameters synthesisParams `json:"parameters"`
}

type synthesisInput struct {
	Prompt string `json:"prompt"`
}

type synthesisParams struct {
	Size string `json:"size,omitempty"`
	N    int    `json:"n,omitempty"`
}

type synthesisResponse struct {
	Output struct {
		Results []struct {
			URL      string `json:"url"`
			B64Image string `json:"b64_image"`
		} `json:"results"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit generates a still image for the prompt, converts it to motion video
// through the compositor, and returns the bytes inline.
func (a *Adapter) Submit(ctx context.Context, req video.Request) (*video.SubmitResult, error) {
	if !a.Configured() {
		return nil, video.ErrNotConfigured
	}

	w, h := req.AspectRatio.Size()
	payload := synthesisRequest{
		Model: a.model,
		Input: synthesisInput{Prompt: req.Prompt},
		Parameters: synthesisParams{
			Size: sizeParam(w, h),
			N:    1,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "dashscope: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+synthesisPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "dashscope: build request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "dashscope: call vendor")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, errors.Wrap(err, "dashscope: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &video.VendorError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Message:  vendorMessage(data),
		}
	}

	var decoded synthesisResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, errors.Wrap(err, "dashscope: decode response")
	}
	if decoded.Code != "" {
		return nil, &video.VendorError{Provider: providerName, Message: decoded.Code + ": " + decoded.Message}
	}
	if len(decoded.Output.Results) == 0 {
		return nil, &video.VendorError{Provider: providerName, Message: "response carries no image"}
	}

	image, err := a.imageBytes(ctx, decoded.Output.Results[0].URL, decoded.Output.Results[0].B64Image)
	if err != nil {
		return nil, err
	}

	profile := concept.Map(req.Prompt, req.Style)
	videoData, err := a.composer.ComposeFromImage(ctx, image, profile, req)
	if err != nil {
		return nil, err
	}
	return &video.SubmitResult{VideoData: videoData, MimeType: "video/mp4"}, nil
}

// Poll is never reached for this adapter; Submit always returns inline.
func (a *Adapter) Poll(ctx context.Context, jobID string) (*video.PollResult, error) {
	return nil, errors.New("dashscope: provider has no asynchronous jobs")
}

func (a *Adapter) imageBytes(ctx context.Context, url, b64 string) ([]byte, error) {
	if b64 != "" {
		image, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, errors.Wrap(err, "dashscope: decode inline image")
		}
		return image, nil
	}
	if url == "" {
		return nil, &video.VendorError{Provider: providerName, Message: "result carries neither url nor inline image"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dashscope: build image download")
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "dashscope: download image")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &video.VendorError{Provider: providerName, Status: resp.StatusCode, Message: "image download failed"}
	}
	image, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, errors.Wrap(err, "dashscope: read image")
	}
	return image, nil
}

func sizeParam(w, h int) string {
	return fmt.Sprintf("%d*%d", w, h)
}

func vendorMessage(body []byte) string {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

var _ video.Adapter = (*Adapter)(nil)
