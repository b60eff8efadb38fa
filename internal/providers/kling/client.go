// Package kling integrates the Kling text-to-video vendor. Kling queues
// asynchronous tasks and authenticates each call with a short-lived HS256
// bearer token minted from an "access_key,secret_key" credential pair.
package kling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"

	"promoforge/internal/infra"
	"promoforge/internal/providers/video"
)

const (
	providerName = "kling"
	defaultModel = "kling-v1"
	submitPath   = "/v1/videos/text2video"
)

// Options configures the Kling adapter.
type Options struct {
	// APIKey carries both halves of the credential as "access_key,secret_key".
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Adapter implements video.Adapter against the Kling HTTP API.
type Adapter struct {
	accessKey  string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// New constructs a Kling adapter. Credentials that do not split into two
// parts leave the adapter unconfigured rather than failing.
func New(opts Options) *Adapter {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	adapter := &Adapter{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     opts.Logger,
	}
	if parts := strings.Split(opts.APIKey, ","); len(parts) == 2 {
		adapter.accessKey = strings.TrimSpace(parts[0])
		adapter.secretKey = strings.TrimSpace(parts[1])
	}
	return adapter
}

// Name identifies the provider in attempt logs and artifact metadata.
func (a *Adapter) Name() string { return providerName }

// Configured reports whether both credential halves are present.
func (a *Adapter) Configured() bool {
	return a != nil && a.accessKey != "" && a.secretKey != ""
}

// bearerToken mints the per-request JWT the vendor expects: issuer is the
// access key, valid for 30 minutes, with a small backdated nbf for clock skew.
func (a *Adapter) bearerToken() (string, error) {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"iss": a.accessKey,
		"exp": now + 1800,
		"nbf": now - 5,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["typ"] = "JWT"
	signed, err := token.SignedString([]byte(a.secretKey))
	if err != nil {
		return "", errors.Wrap(err, "kling: sign bearer token")
	}
	return signed, nil
}

type submitRequest struct {
	ModelName   string  `json:"model_name"`
	Prompt      string  `json:"prompt"`
	Duration    string  `json:"duration,omitempty"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	CfgScale    float64 `json:"cfg_scale,omitempty"`
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type taskData struct {
	TaskID        string `json:"task_id"`
	TaskStatus    string `json:"task_status"`
	TaskStatusMsg string `json:"task_status_msg"`
	TaskResult    struct {
		Videos []struct {
			URL string `json:"url"`
		} `json:"videos"`
	} `json:"task_result"`
}

// Submit queues a text-to-video task and returns its id.
func (a *Adapter) Submit(ctx context.Context, req video.Request) (*video.SubmitResult, error) {
	if !a.Configured() {
		return nil, video.ErrNotConfigured
	}

	// Kling only accepts 5s or 10s clips; round the requested duration to
	// the nearest supported value.
	duration := "5"
	if req.Duration > 7.5 {
		duration = "10"
	}
	payload := submitRequest{
		ModelName:   defaultModel,
		Prompt:      req.Prompt,
		Duration:    duration,
		AspectRatio: string(req.AspectRatio),
		CfgScale:    0.5,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "kling: marshal submit request")
	}

	var task taskData
	if err := a.doJSON(ctx, http.MethodPost, a.baseURL+submitPath, body, &task); err != nil {
		return nil, err
	}
	if task.TaskID == "" {
		return nil, &video.VendorError{Provider: providerName, Message: "submit response missing task id"}
	}
	return &video.SubmitResult{JobID: task.TaskID}, nil
}

// Poll fetches the task state; "submitted" and "processing" map to pending.
func (a *Adapter) Poll(ctx context.Context, jobID string) (*video.PollResult, error) {
	if !a.Configured() {
		return nil, video.ErrNotConfigured
	}
	if jobID == "" {
		return nil, errors.New("kling: job id is required")
	}

	var task taskData
	if err := a.doJSON(ctx, http.MethodGet, a.baseURL+submitPath+"/"+jobID, nil, &task); err != nil {
		return nil, err
	}

	switch task.TaskStatus {
	case "succeed":
		if len(task.TaskResult.Videos) == 0 || task.TaskResult.Videos[0].URL == "" {
			return &video.PollResult{Status: video.PollFailed, Reason: "task succeeded without a video"}, nil
		}
		return &video.PollResult{Status: video.PollSucceeded, VideoURL: task.TaskResult.Videos[0].URL}, nil
	case "failed":
		reason := task.TaskStatusMsg
		if reason == "" {
			reason = "task failed"
		}
		return &video.PollResult{Status: video.PollFailed, Reason: reason}, nil
	default:
		return &video.PollResult{Status: video.PollPending}, nil
	}
}

func (a *Adapter) doJSON(ctx context.Context, method, url string, body []byte, out *taskData) error {
	token, err := a.bearerToken()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "kling: build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "kling: call vendor")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "kling: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &video.VendorError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Message:  strings.TrimSpace(firstLine(string(data))),
		}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return errors.Wrap(err, "kling: decode response")
	}
	if envelope.Code != 0 {
		return &video.VendorError{
			Provider: providerName,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("api code %d: %s", envelope.Code, envelope.Message),
		}
	}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.Wrap(err, "kling: decode task data")
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

var _ video.Adapter = (*Adapter)(nil)
