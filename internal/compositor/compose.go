// Package compositor turns still images or pure synthetic sources into MP4
// payloads by driving an ffmpeg subprocess with a generated filter program.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"promoforge/internal/concept"
	"promoforge/internal/providers/video"
)

const outputFPS = 30

// Compositor exposes the two composition modes of the pipeline. Each call is
// self-contained: inputs and the encoded result live in a scoped temp
// directory that is removed on every exit path.
type Compositor struct {
	engine *Engine
}

// New wires a Compositor around an Engine.
func New(engine *Engine) *Compositor {
	return &Compositor{engine: engine}
}

// ComposeFromImage produces a video whose frames derive from the supplied
// still image: the image is normalized to the output geometry, panned and
// zoomed per the concept profile, and overlaid with the prompt text.
func (c *Compositor) ComposeFromImage(ctx context.Context, image []byte, profile concept.Profile, req video.Request) ([]byte, error) {
	if len(image) == 0 {
		return nil, errors.New("compositor: source image is empty")
	}
	return c.render(ctx, req, func(dir string, g *Graph) error {
		imgPath := filepath.Join(dir, "source.img")
		if err := os.WriteFile(imgPath, image, 0o600); err != nil {
			return fmt.Errorf("compositor: write source image: %w", err)
		}
		label := g.AddImageInput(imgPath)
		label = g.ZoomPan(label, profile.ZoomSpeed, profile.MaxZoom)
		g.DrawText(label, req.Prompt, profile.AccentColor, 1.5)
		return nil
	})
}

// ComposeSynthetic produces a video with no external input: two flat color
// layers blended per the profile, a drifting particle layer, the standard
// zoom-pan, and the prompt overlay.
func (c *Compositor) ComposeSynthetic(ctx context.Context, profile concept.Profile, req video.Request) ([]byte, error) {
	return c.render(ctx, req, func(dir string, g *Graph) error {
		primary := g.AddColorSource(profile.PrimaryColor)
		secondary := g.AddColorSource(profile.SecondaryColor)
		base := g.Blend(primary, secondary, profile.BlendMode, 0.6)
		base = g.Pulse(base, 0.08, profile.MotionFrequency)

		particles := g.AddNoiseSource(profile.AccentColor, 24)
		particles = g.FadeLayer(particles, 0.18)
		base = g.DriftOverlay(base, particles, profile.MotionAmplitude, profile.MotionFrequency)

		base = g.ZoomPan(base, profile.ZoomSpeed, profile.MaxZoom)
		g.DrawText(base, req.Prompt, profile.AccentColor, 1.5)
		return nil
	})
}

func (c *Compositor) render(ctx context.Context, req video.Request, build func(dir string, g *Graph) error) ([]byte, error) {
	if c == nil || c.engine == nil {
		return nil, ErrEngineUnavailable
	}
	duration := req.Duration
	if duration <= 0 {
		duration = 4
	}
	w, h := req.AspectRatio.Size()

	dir, err := os.MkdirTemp("", "promoforge-compose-*")
	if err != nil {
		return nil, fmt.Errorf("compositor: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	g := NewGraph(w, h, outputFPS, duration)
	if err := build(dir, g); err != nil {
		return nil, err
	}

	outPath := filepath.Join(dir, "out.mp4")
	if err := c.engine.Render(ctx, g, outPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("compositor: read output: %w", err)
	}
	return data, nil
}
