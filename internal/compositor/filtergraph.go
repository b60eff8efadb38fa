package compositor

import (
	"fmt"
	"strings"

	"promoforge/internal/concept"
)

// Graph is a typed model of the filter program handed to the encoding
// engine. Stages keep their numeric parameters as fields and are only
// serialized into filter syntax at Args time, so prompt text and tuning
// values never get spliced together by hand at call sites.
type Graph struct {
	Width    int
	Height   int
	FPS      int
	Duration float64

	inputs []graphInput
	stages []stage
	last   string
	labels int
}

type graphInput struct {
	args []string
}

type stage interface {
	serialize() string
}

// NewGraph constructs an empty graph for the given output geometry.
func NewGraph(width, height, fps int, duration float64) *Graph {
	return &Graph{Width: width, Height: height, FPS: fps, Duration: duration}
}

func (g *Graph) nextLabel(prefix string) string {
	g.labels++
	return fmt.Sprintf("%s%d", prefix, g.labels)
}

// Out is the label of the last stage output, the one mapped into the file.
func (g *Graph) Out() string {
	return g.last
}

// prepareStage runs a fixed normalization chain on a raw input before it
// participates in blending.
type prepareStage struct {
	in, out string
	chain   string
}

func (s *prepareStage) serialize() string {
	return fmt.Sprintf("[%s]%s[%s]", s.in, s.chain, s.out)
}

// AddColorSource appends a flat color input sized to the output and returns
// its label.
func (g *Graph) AddColorSource(hexColor string) string {
	idx := len(g.inputs)
	g.inputs = append(g.inputs, graphInput{args: []string{
		"-f", "lavfi",
		"-t", formatFloat(g.Duration),
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", hexColor, g.Width, g.Height, g.FPS),
	}})
	out := g.nextLabel("src")
	g.stages = append(g.stages, &prepareStage{
		in:    fmt.Sprintf("%d:v", idx),
		out:   out,
		chain: "format=yuv420p,setsar=1",
	})
	g.last = out
	return out
}

// AddNoiseSource appends a temporally varying noise layer tinted with the
// given color, used for the particle texture in synthetic renders.
func (g *Graph) AddNoiseSource(hexColor string, strength int) string {
	if strength <= 0 {
		strength = 20
	}
	idx := len(g.inputs)
	g.inputs = append(g.inputs, graphInput{args: []string{
		"-f", "lavfi",
		"-t", formatFloat(g.Duration),
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", hexColor, g.Width, g.Height, g.FPS),
	}})
	out := g.nextLabel("noise")
	g.stages = append(g.stages, &prepareStage{
		in:    fmt.Sprintf("%d:v", idx),
		out:   out,
		chain: fmt.Sprintf("noise=alls=%d:allf=t+u,format=yuv420p,setsar=1", strength),
	})
	g.last = out
	return out
}

// AddImageInput appends a looped still-image input, scaled and padded to the
// output geometry, and returns its label.
func (g *Graph) AddImageInput(path string) string {
	idx := len(g.inputs)
	g.inputs = append(g.inputs, graphInput{args: []string{
		"-loop", "1",
		"-framerate", fmt.Sprintf("%d", g.FPS),
		"-t", formatFloat(g.Duration),
		"-i", path,
	}})
	out := g.nextLabel("img")
	g.stages = append(g.stages, &prepareStage{
		in:  fmt.Sprintf("%d:v", idx),
		out: out,
		chain: fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,format=yuv420p",
			g.Width, g.Height, g.Width, g.Height),
	})
	g.last = out
	return out
}

type blendStage struct {
	a, b, out string
	mode      concept.BlendMode
	opacity   float64
}

func (s *blendStage) serialize() string {
	return fmt.Sprintf("[%s][%s]blend=all_mode=%s:all_opacity=%s[%s]",
		s.a, s.b, blendModeName(s.mode), formatFloat(s.opacity), s.out)
}

// Blend combines two layers with the given mode and static opacity.
func (g *Graph) Blend(a, b string, mode concept.BlendMode, opacity float64) string {
	if opacity <= 0 || opacity > 1 {
		opacity = 0.6
	}
	out := g.nextLabel("blend")
	g.stages = append(g.stages, &blendStage{a: a, b: b, out: out, mode: mode, opacity: opacity})
	g.last = out
	return out
}

type pulseStage struct {
	in, out   string
	amplitude float64
	frequency float64
}

func (s *pulseStage) serialize() string {
	return fmt.Sprintf("[%s]eq=brightness='%s*sin(2*PI*t*%s)':eval=frame[%s]",
		s.in, formatFloat(s.amplitude), formatFloat(s.frequency), s.out)
}

// Pulse applies a sinusoidal brightness sweep so flat synthetic layers read
// as motion rather than a static card.
func (g *Graph) Pulse(in string, amplitude, frequency float64) string {
	out := g.nextLabel("pulse")
	g.stages = append(g.stages, &pulseStage{in: in, out: out, amplitude: amplitude, frequency: frequency})
	g.last = out
	return out
}

type driftOverlayStage struct {
	base, layer, out string
	amplitude        float64
	frequency        float64
}

func (s *driftOverlayStage) serialize() string {
	amp := formatFloat(s.amplitude)
	freq := formatFloat(s.frequency)
	return fmt.Sprintf("[%s][%s]overlay=x='%s*sin(2*PI*t*%s)':y='%s*cos(2*PI*t*%s)':eval=frame:format=yuv420[%s]",
		s.base, s.layer, amp, freq, amp, freq, s.out)
}

// DriftOverlay floats one layer over another along a slow Lissajous path;
// paired with a faded noise layer it produces the particle effect.
func (g *Graph) DriftOverlay(base, layer string, amplitude, frequency float64) string {
	out := g.nextLabel("drift")
	g.stages = append(g.stages, &driftOverlayStage{base: base, layer: layer, out: out, amplitude: amplitude, frequency: frequency})
	g.last = out
	return out
}

type fadeLayerStage struct {
	in, out string
	opacity float64
}

func (s *fadeLayerStage) serialize() string {
	return fmt.Sprintf("[%s]format=rgba,colorchannelmixer=aa=%s[%s]", s.in, formatFloat(s.opacity), s.out)
}

// FadeLayer reduces a layer to the given constant alpha before overlaying.
func (g *Graph) FadeLayer(in string, opacity float64) string {
	out := g.nextLabel("faded")
	g.stages = append(g.stages, &fadeLayerStage{in: in, out: out, opacity: opacity})
	g.last = out
	return out
}

type zoomPanStage struct {
	in, out        string
	speed, maxZoom float64
	width, height  int
	fps            int
	frames         int
}

func (s *zoomPanStage) serialize() string {
	// Upscale before zoompan to keep sub-pixel panning smooth.
	return fmt.Sprintf(
		"[%s]scale=%d:-2,zoompan=z='min(zoom+%s,%s)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d[%s]",
		s.in, s.width*2, formatFloat(s.speed), formatFloat(s.maxZoom), s.frames, s.width, s.height, s.fps, s.out)
}

// ZoomPan applies a monotonic center zoom over the whole clip.
func (g *Graph) ZoomPan(in string, speed, maxZoom float64) string {
	frames := int(g.Duration * float64(g.FPS))
	if frames < 1 {
		frames = 1
	}
	out := g.nextLabel("zoom")
	g.stages = append(g.stages, &zoomPanStage{
		in: in, out: out,
		speed: speed, maxZoom: maxZoom,
		width: g.Width, height: g.Height, fps: g.FPS,
		frames: frames,
	})
	g.last = out
	return out
}

type drawTextStage struct {
	in, out   string
	text      string
	fontColor string
	fontSize  int
	fade      float64
	duration  float64
}

func (s *drawTextStage) serialize() string {
	fade := formatFloat(s.fade)
	dur := formatFloat(s.duration)
	alpha := fmt.Sprintf("if(lt(t,%s),t/%s,if(gt(t,%s-%s),max((%s-t)/%s,0),1))", fade, fade, dur, fade, dur, fade)
	return fmt.Sprintf(
		"[%s]drawtext=text='%s':fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=h-(h/6):alpha='%s'[%s]",
		s.in, s.text, s.fontColor, s.fontSize, alpha, s.out)
}

// DrawText overlays sanitized prompt text with a fade-in/out alpha envelope
// over the first and last fade seconds of the clip.
func (g *Graph) DrawText(in, text, fontColor string, fade float64) string {
	text = SanitizeOverlayText(text)
	if text == "" {
		return in
	}
	if fade <= 0 {
		fade = 1.5
	}
	if fade*2 > g.Duration {
		fade = g.Duration / 2
	}
	size := g.Height / 12
	out := g.nextLabel("text")
	g.stages = append(g.stages, &drawTextStage{
		in: in, out: out,
		text:      text,
		fontColor: fontColor,
		fontSize:  size,
		fade:      fade,
		duration:  g.Duration,
	})
	g.last = out
	return out
}

// FilterComplex serializes every stage into the textual filter program.
func (g *Graph) FilterComplex() string {
	parts := make([]string, 0, len(g.stages))
	for _, s := range g.stages {
		parts = append(parts, s.serialize())
	}
	return strings.Join(parts, ";")
}

// Args assembles the full engine argument list for rendering to outPath.
func (g *Graph) Args(outPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range g.inputs {
		args = append(args, in.args...)
	}
	args = append(args,
		"-filter_complex", g.FilterComplex(),
		"-map", fmt.Sprintf("[%s]", g.last),
		"-t", formatFloat(g.Duration),
		"-r", fmt.Sprintf("%d", g.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-movflags", "+faststart",
		outPath,
	)
	return args
}

func blendModeName(m concept.BlendMode) string {
	switch m {
	case concept.BlendScreen:
		return "screen"
	case concept.BlendSoftLight:
		return "softlight"
	case concept.BlendLighten:
		return "lighten"
	default:
		return "overlay"
	}
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// SanitizeOverlayText strips characters that carry meaning inside the filter
// program (quotes, backslashes, colons, percent signs) plus control runes,
// collapses whitespace, and caps the length so user prompts are safe to embed
// as drawtext content.
func SanitizeOverlayText(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '\'', '"', '\\', ':', ';', '%', '[', ']', ',', '=':
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	const maxOverlayRunes = 60
	runes := []rune(cleaned)
	if len(runes) > maxOverlayRunes {
		cleaned = strings.TrimSpace(string(runes[:maxOverlayRunes]))
	}
	return cleaned
}
