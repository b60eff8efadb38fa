package pipeline

import (
	"context"

	"promoforge/internal/compositor"
	"promoforge/internal/concept"
	"promoforge/internal/providers/video"
)

// LocalTag names the procedural renderer in attempt logs and artifact
// metadata.
const LocalTag = "local-fallback"

// Renderer is the guaranteed last step of the cascade: a video produced with
// no network dependency.
type Renderer interface {
	Name() string
	Render(ctx context.Context, req video.Request) ([]byte, concept.Profile, error)
}

// LocalRenderer synthesizes a video purely from the prompt: the concept
// mapper picks the palette and motion, the compositor renders it. There is
// exactly one local renderer; every visual variant is data in the profile,
// not a separate code path.
type LocalRenderer struct {
	comp *compositor.Compositor
}

// NewLocalRenderer wires the renderer around a compositor.
func NewLocalRenderer(comp *compositor.Compositor) *LocalRenderer {
	return &LocalRenderer{comp: comp}
}

// Name identifies the renderer in attempt logs.
func (r *LocalRenderer) Name() string { return LocalTag }

// Render produces synthetic video bytes for the request.
func (r *LocalRenderer) Render(ctx context.Context, req video.Request) ([]byte, concept.Profile, error) {
	profile := concept.Map(req.Prompt, req.Style)
	data, err := r.comp.ComposeSynthetic(ctx, profile, req)
	if err != nil {
		return nil, profile, err
	}
	return data, profile, nil
}

var _ Renderer = (*LocalRenderer)(nil)
