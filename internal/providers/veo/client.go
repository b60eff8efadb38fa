// Package veo integrates the Veo text-to-video vendor. Veo is asynchronous:
// Submit starts a long-running operation and Poll checks it until the vendor
// reports a terminal state.
package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"promoforge/internal/infra"
	"promoforge/internal/providers/video"
)

const providerName = "veo"

// Options configures the Veo adapter.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Adapter implements video.Adapter against the Veo HTTP API.
type Adapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// New constructs a Veo adapter. A missing API key is not an error here; the
// adapter reports itself unconfigured and the orchestrator skips it.
func New(opts Options) *Adapter {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	model := opts.Model
	if model == "" {
		model = "veo-2.0-generate-001"
	}
	return &Adapter{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

// Name identifies the provider in attempt logs and artifact metadata.
func (a *Adapter) Name() string { return providerName }

// Configured reports whether credentials are present.
func (a *Adapter) Configured() bool { return a != nil && a.apiKey != "" }

type submitRequest struct {
	Instances  []submitInstance `json:"instances"`
	Parameters submitParameters `json:"parameters"`
}

type submitInstance struct {
	Prompt string `json:"prompt"`
}

type submitParameters struct {
	AspectRatio     string  `json:"aspectRatio,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

type submitResponse struct {
	Name string `json:"name"`
}

// Submit starts a generation operation and returns its opaque name as the
// job id.
func (a *Adapter) Submit(ctx context.Context, req video.Request) (*video.SubmitResult, error) {
	if !a.Configured() {
		return nil, video.ErrNotConfigured
	}

	payload := submitRequest{
		Instances: []submitInstance{{Prompt: req.Prompt}},
		Parameters: submitParameters{
			AspectRatio:     string(req.AspectRatio),
			DurationSeconds: req.Duration,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "veo: marshal submit request")
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", a.baseURL, a.model)
	var resp submitResponse
	if err := a.doJSON(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, &video.VendorError{Provider: providerName, Message: "submit response missing operation name"}
	}
	return &video.SubmitResult{JobID: resp.Name}, nil
}

type operationResponse struct {
	Done  bool `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

// Poll fetches the operation state. It returns pending until the vendor
// reports done, then either the video URL or the vendor failure reason.
func (a *Adapter) Poll(ctx context.Context, jobID string) (*video.PollResult, error) {
	if !a.Configured() {
		return nil, video.ErrNotConfigured
	}
	if jobID == "" {
		return nil, errors.New("veo: job id is required")
	}

	url := fmt.Sprintf("%s/%s", a.baseURL, strings.TrimLeft(jobID, "/"))
	var resp operationResponse
	if err := a.doJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}

	if !resp.Done {
		return &video.PollResult{Status: video.PollPending}, nil
	}
	if resp.Error != nil {
		return &video.PollResult{Status: video.PollFailed, Reason: resp.Error.Message}, nil
	}
	samples := resp.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video.URI == "" {
		return &video.PollResult{Status: video.PollFailed, Reason: "operation finished without a video"}, nil
	}
	return &video.PollResult{Status: video.PollSucceeded, VideoURL: samples[0].Video.URI}, nil
}

func (a *Adapter) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "veo: build request")
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "veo: call vendor")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "veo: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &video.VendorError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Message:  vendorMessage(data),
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "veo: decode response")
	}
	return nil
}

func vendorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

var _ video.Adapter = (*Adapter)(nil)
