package video

import (
	"context"
	"strings"
	"time"
)

// AspectRatio enumerates the output shapes the pipeline can produce.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

// ParseAspectRatio normalizes free-form input into a supported ratio,
// defaulting to landscape.
func ParseAspectRatio(s string) AspectRatio {
	switch strings.TrimSpace(s) {
	case string(AspectPortrait):
		return AspectPortrait
	case string(AspectSquare):
		return AspectSquare
	default:
		return AspectLandscape
	}
}

// Size returns the output resolution for the ratio.
func (a AspectRatio) Size() (w, h int) {
	switch a {
	case AspectPortrait:
		return 720, 1280
	case AspectSquare:
		return 960, 960
	default:
		return 1280, 720
	}
}

// Request describes a normalized generation request passed to any provider.
// It is created once per caller invocation and read-only thereafter.
type Request struct {
	Prompt      string
	AspectRatio AspectRatio
	Style       string
	Duration    float64
	RequestID   string
}

// SubmitResult is what a provider returns from Submit. Exactly one of the
// payload fields is populated: VideoData for an inline result, VideoURL for a
// remote one, or JobID when the vendor queued an asynchronous task that must
// be polled.
type SubmitResult struct {
	VideoData []byte
	VideoURL  string
	JobID     string
	MimeType  string
}

// Queued reports whether the vendor deferred the work to an async job.
func (r *SubmitResult) Queued() bool {
	return r != nil && r.JobID != ""
}

// PollStatus is the state of an asynchronous vendor job.
type PollStatus string

const (
	PollPending   PollStatus = "pending"
	PollSucceeded PollStatus = "succeeded"
	PollFailed    PollStatus = "failed"
)

// PollResult is one observation of an asynchronous job.
type PollResult struct {
	Status    PollStatus
	VideoURL  string
	VideoData []byte
	Reason    string
}

// Adapter is the uniform contract implemented by every vendor integration.
// Synchronous vendors return an inline or remote payload from Submit and
// never see Poll; asynchronous vendors return a JobID and are polled by the
// orchestrator until a terminal state or the attempt cap.
type Adapter interface {
	Name() string
	Configured() bool
	Submit(ctx context.Context, req Request) (*SubmitResult, error)
	Poll(ctx context.Context, jobID string) (*PollResult, error)
}

// Outcome classifies how one provider attempt ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped_not_configured"
)

// Attempt records one provider try for observability. The orchestrator
// accumulates attempts in priority order; none are dropped.
type Attempt struct {
	Provider  string
	StartedAt time.Time
	Outcome   Outcome
	Err       string
}
