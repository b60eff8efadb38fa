package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"promoforge/internal/infra"
)

var commandContext = exec.CommandContext

// ErrEngineUnavailable indicates the encoding binary could not be spawned at
// all, typically because it is not installed.
var ErrEngineUnavailable = errors.New("compositor: encoding engine unavailable")

// CompositionError indicates the engine ran but exited non-zero.
type CompositionError struct {
	Code       int
	StderrTail string
}

func (e *CompositionError) Error() string {
	if e.StderrTail != "" {
		return fmt.Sprintf("compositor: engine exited with code %d: %s", e.Code, e.StderrTail)
	}
	return fmt.Sprintf("compositor: engine exited with code %d", e.Code)
}

// Engine runs the ffmpeg binary with a serialized filter graph. One process
// is spawned per render; a wall-clock timeout kills hung processes so a stuck
// encode surfaces as a CompositionError instead of leaking.
type Engine struct {
	binary  string
	timeout time.Duration
	logger  *infra.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithBinary overrides the default binary name.
func WithBinary(binary string) EngineOption {
	return func(e *Engine) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// WithTimeout overrides the default render timeout.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithEngineLogger attaches a logger for render diagnostics.
func WithEngineLogger(l *infra.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine constructs an Engine using defaults.
func NewEngine(opts ...EngineOption) *Engine {
	engine := &Engine{binary: "ffmpeg", timeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Render executes the graph and leaves the encoded file at outPath.
func (e *Engine) Render(ctx context.Context, g *Graph, outPath string) error {
	if g == nil {
		return errors.New("compositor: graph is required")
	}
	if g.Out() == "" {
		return errors.New("compositor: graph has no stages")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := g.Args(outPath)
	cmd := commandContext(ctx, e.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if e.logger != nil {
		e.logger.Debug().
			Str("binary", e.binary).
			Dur("elapsed", time.Since(start)).
			Bool("ok", err == nil).
			Msg("compositor render")
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CompositionError{Code: exitErr.ExitCode(), StderrTail: stderrTail(stderr.String())}
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return &CompositionError{Code: 0, StderrTail: "engine exited cleanly but produced no output"}
	}
	return nil
}

// stderrTail keeps the last few lines of engine output, which is where the
// actionable message lives.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	const keep = 5
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	tail := strings.Join(lines, " | ")
	const maxLen = 500
	if len(tail) > maxLen {
		tail = tail[len(tail)-maxLen:]
	}
	return tail
}
