// Package pipeline coordinates the provider cascade: remote vendors are
// tried strictly in configured order, one at a time, and the local
// procedural renderer closes the chain so a valid request practically always
// yields a video.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"promoforge/internal/concept"
	"promoforge/internal/history"
	"promoforge/internal/infra"
	"promoforge/internal/providers/video"
	"promoforge/internal/storage"
)

// Metadata echoes the request plus the concept profile so an artifact can be
// traced back to what produced it.
type Metadata struct {
	Prompt      string            `json:"prompt"`
	Style       string            `json:"style,omitempty"`
	Duration    float64           `json:"duration"`
	AspectRatio video.AspectRatio `json:"aspect_ratio"`
	ProducedBy  string            `json:"produced_by"`
	Profile     concept.Profile   `json:"profile"`
}

// Artifact is the single result of a successful generation. It is immutable
// after creation; callers only ever hold this reference, the store owns the
// bytes.
type Artifact struct {
	ID           string
	RelativePath string
	MimeType     string
	SizeBytes    int64
	ProducedBy   string
	Metadata     Metadata
	CreatedAt    time.Time
}

// Options wires an Orchestrator. Store and Local are required; everything
// else has defaults.
type Options struct {
	Adapters     []video.Adapter
	Local        Renderer
	Store        *storage.FileStore
	Recorder     history.Recorder
	Logger       infra.Logger
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollAttempts int

	// DefaultDuration is applied to requests that carry no duration.
	DefaultDuration float64

	// Sleep and Now are seams for tests; production uses the clock.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
	NewID func() string
}

// Orchestrator owns the ordered provider list plus the local renderer.
type Orchestrator struct {
	adapters     []video.Adapter
	local        Renderer
	store        *storage.FileStore
	recorder     history.Recorder
	logger       infra.Logger
	httpClient   *http.Client
	pollInterval time.Duration
	pollAttempts int
	duration     float64
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
	newID        func() string
}

// New validates options and builds an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if opts.Local == nil {
		return nil, errors.New("pipeline: local renderer is required")
	}
	o := &Orchestrator{
		adapters:     opts.Adapters,
		local:        opts.Local,
		store:        opts.Store,
		recorder:     opts.Recorder,
		logger:       opts.Logger,
		httpClient:   opts.HTTPClient,
		pollInterval: opts.PollInterval,
		pollAttempts: opts.PollAttempts,
		duration:     opts.DefaultDuration,
		sleep:        opts.Sleep,
		now:          opts.Now,
		newID:        opts.NewID,
	}
	if o.recorder == nil {
		o.recorder = history.NewNoop()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if o.pollInterval <= 0 {
		o.pollInterval = 3 * time.Second
	}
	if o.pollAttempts <= 0 {
		o.pollAttempts = 40
	}
	if o.duration <= 0 {
		o.duration = 4
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// Generate runs the cascade for one request. It returns exactly one artifact
// or one terminal error, never both, plus the ordered attempt log. Remote
// failures are swallowed into attempts; only a local render failure is fatal.
func (o *Orchestrator) Generate(ctx context.Context, req video.Request) (*Artifact, []video.Attempt, error) {
	if req.Prompt == "" {
		return nil, nil, errors.New("pipeline: prompt is required")
	}
	if req.Duration <= 0 {
		req.Duration = o.duration
	}
	if req.AspectRatio == "" {
		req.AspectRatio = video.AspectLandscape
	}

	attempts := make([]video.Attempt, 0, len(o.adapters)+1)

	for _, adapter := range o.adapters {
		attempt := video.Attempt{Provider: adapter.Name(), StartedAt: o.now()}

		if !adapter.Configured() {
			attempt.Outcome = video.OutcomeSkipped
			attempts = append(attempts, attempt)
			o.logger.Debug().Str("provider", adapter.Name()).Msg("provider skipped, no credentials")
			continue
		}

		data, mime, err := o.tryAdapter(ctx, adapter, req)
		if err != nil {
			if video.IsNotConfigured(err) {
				attempt.Outcome = video.OutcomeSkipped
			} else {
				attempt.Outcome = video.OutcomeFailed
				attempt.Err = err.Error()
				o.logger.Warn().Err(err).Str("provider", adapter.Name()).Msg("provider attempt failed")
			}
			attempts = append(attempts, attempt)
			if ctx.Err() != nil {
				o.record(ctx, req, attempts, nil)
				return nil, attempts, ctx.Err()
			}
			continue
		}

		attempt.Outcome = video.OutcomeSucceeded
		attempts = append(attempts, attempt)
		artifact, err := o.publish(ctx, adapter.Name(), data, mime, req, concept.Map(req.Prompt, req.Style))
		if err != nil {
			o.record(ctx, req, attempts, nil)
			return nil, attempts, err
		}
		o.logger.Info().Str("provider", adapter.Name()).Str("path", artifact.RelativePath).Msg("video generated")
		o.record(ctx, req, attempts, artifact)
		return artifact, attempts, nil
	}

	// Every configured provider is exhausted; the procedural renderer is the
	// guaranteed path.
	attempt := video.Attempt{Provider: o.local.Name(), StartedAt: o.now()}
	data, profile, err := o.local.Render(ctx, req)
	if err != nil {
		attempt.Outcome = video.OutcomeFailed
		attempt.Err = err.Error()
		attempts = append(attempts, attempt)
		o.logger.Error().Err(err).Msg("local fallback failed, request is fatal")
		o.record(ctx, req, attempts, nil)
		return nil, attempts, fmt.Errorf("pipeline: all providers exhausted and local render failed: %w", err)
	}
	attempt.Outcome = video.OutcomeSucceeded
	attempts = append(attempts, attempt)

	artifact, err := o.publish(ctx, o.local.Name(), data, "video/mp4", req, profile)
	if err != nil {
		o.record(ctx, req, attempts, nil)
		return nil, attempts, err
	}
	o.logger.Info().Str("provider", o.local.Name()).Str("path", artifact.RelativePath).Msg("video generated")
	o.record(ctx, req, attempts, artifact)
	return artifact, attempts, nil
}

// tryAdapter runs one provider to completion: submit, then the poll loop for
// queued vendors, then the payload download when only a URL came back.
func (o *Orchestrator) tryAdapter(ctx context.Context, adapter video.Adapter, req video.Request) ([]byte, string, error) {
	result, err := adapter.Submit(ctx, req)
	if err != nil {
		return nil, "", err
	}
	if result == nil {
		return nil, "", fmt.Errorf("%s: empty submit result", adapter.Name())
	}

	videoURL := result.VideoURL
	data := result.VideoData
	mime := result.MimeType

	if result.Queued() {
		poll, err := o.pollJob(ctx, adapter, result.JobID)
		if err != nil {
			return nil, "", err
		}
		videoURL = poll.VideoURL
		data = poll.VideoData
	}

	if len(data) == 0 && videoURL != "" {
		data, err = o.download(ctx, videoURL)
		if err != nil {
			return nil, "", err
		}
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s: provider returned no payload", adapter.Name())
	}
	if mime == "" {
		mime = "video/mp4"
	}
	return data, mime, nil
}

// pollJob drives an async job with a fixed interval between checks and a
// hard attempt cap so a vendor that never terminates cannot hold the request.
func (o *Orchestrator) pollJob(ctx context.Context, adapter video.Adapter, jobID string) (*video.PollResult, error) {
	for i := 0; i < o.pollAttempts; i++ {
		if err := o.sleep(ctx, o.pollInterval); err != nil {
			return nil, err
		}
		result, err := adapter.Poll(ctx, jobID)
		if err != nil {
			return nil, err
		}
		switch result.Status {
		case video.PollSucceeded:
			return result, nil
		case video.PollFailed:
			reason := result.Reason
			if reason == "" {
				reason = "job failed"
			}
			return nil, &video.VendorError{Provider: adapter.Name(), Message: reason}
		}
	}
	return nil, video.ErrPollTimeout
}

func (o *Orchestrator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build download: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pipeline: download video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pipeline: download video: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 256<<20))
	if err != nil {
		return nil, fmt.Errorf("pipeline: read video payload: %w", err)
	}
	return data, nil
}

// publish writes the payload through the store's write-then-rename path, so
// a partially written file is never visible under an artifact key.
func (o *Orchestrator) publish(ctx context.Context, producedBy string, data []byte, mime string, req video.Request, profile concept.Profile) (*Artifact, error) {
	now := o.now()
	key := o.store.ArtifactKey(producedBy, now)
	relPath, err := o.store.Publish(ctx, key, data)
	if err != nil {
		return nil, fmt.Errorf("pipeline: publish artifact: %w", err)
	}
	return &Artifact{
		ID:           o.newID(),
		RelativePath: relPath,
		MimeType:     mime,
		SizeBytes:    int64(len(data)),
		ProducedBy:   producedBy,
		Metadata: Metadata{
			Prompt:      req.Prompt,
			Style:       req.Style,
			Duration:    req.Duration,
			AspectRatio: req.AspectRatio,
			ProducedBy:  producedBy,
			Profile:     profile,
		},
		CreatedAt: now,
	}, nil
}

// record is best-effort telemetry; failures are logged and swallowed.
func (o *Orchestrator) record(ctx context.Context, req video.Request, attempts []video.Attempt, artifact *Artifact) {
	if err := o.recorder.RecordAttempts(ctx, req.RequestID, attempts); err != nil {
		o.logger.Warn().Err(err).Msg("failed to record attempts")
	}
	if artifact == nil {
		return
	}
	err := o.recorder.RecordArtifact(ctx, req.RequestID, history.ArtifactRecord{
		ID:           artifact.ID,
		RelativePath: artifact.RelativePath,
		MimeType:     artifact.MimeType,
		SizeBytes:    artifact.SizeBytes,
		ProducedBy:   artifact.ProducedBy,
		Prompt:       req.Prompt,
		Style:        req.Style,
		Duration:     req.Duration,
	})
	if err != nil {
		o.logger.Warn().Err(err).Msg("failed to record artifact")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
