package compositor

import (
	"strings"
	"testing"

	"promoforge/internal/concept"
)

func TestSyntheticGraphSerialization(t *testing.T) {
	g := NewGraph(1280, 720, 30, 4)
	a := g.AddColorSource("0x1B2A4A")
	b := g.AddColorSource("0xF2A33C")
	blended := g.Blend(a, b, concept.BlendScreen, 0.6)
	zoomed := g.ZoomPan(blended, 0.0012, 1.25)
	g.DrawText(zoomed, "launch offer", "0xF5F1E8", 1.5)

	fc := g.FilterComplex()
	for _, want := range []string{
		"color=c=0x1B2A4A:s=1280x720:r=30",
		"blend=all_mode=screen:all_opacity=0.6",
		"zoompan=z='min(zoom+0.0012,1.25)'",
		"d=120",
		"drawtext=text='launch offer'",
	} {
		joined := fc + " " + strings.Join(g.Args("/tmp/out.mp4"), " ")
		if !strings.Contains(joined, want) {
			t.Fatalf("serialized graph missing %q:\n%s", want, joined)
		}
	}
}

func TestImageGraphNormalizesGeometry(t *testing.T) {
	g := NewGraph(960, 960, 30, 5)
	label := g.AddImageInput("/tmp/source.img")
	g.ZoomPan(label, 0.001, 1.2)

	fc := g.FilterComplex()
	if !strings.Contains(fc, "scale=960:960:force_original_aspect_ratio=decrease") {
		t.Fatalf("image graph missing scale stage:\n%s", fc)
	}
	if !strings.Contains(fc, "pad=960:960") {
		t.Fatalf("image graph missing pad stage:\n%s", fc)
	}

	args := g.Args("/tmp/out.mp4")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-loop 1") {
		t.Fatalf("image input should loop the still: %s", joined)
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Fatalf("output path must be the final argument: %v", args)
	}
}

func TestArgsMapLastStage(t *testing.T) {
	g := NewGraph(1280, 720, 30, 4)
	a := g.AddColorSource("0x000000")
	g.ZoomPan(a, 0.001, 1.2)

	joined := strings.Join(g.Args("/tmp/out.mp4"), " ")
	if !strings.Contains(joined, "-map ["+g.Out()+"]") {
		t.Fatalf("args do not map the final label %q: %s", g.Out(), joined)
	}
	if !strings.Contains(joined, "-t 4") {
		t.Fatalf("args missing duration: %s", joined)
	}
}

func TestDrawTextSkippedWhenSanitizedEmpty(t *testing.T) {
	g := NewGraph(1280, 720, 30, 4)
	a := g.AddColorSource("0x000000")
	out := g.DrawText(a, "':%\\", "0xFFFFFF", 1.5)
	if out != a {
		t.Fatalf("expected DrawText to be a no-op for fully stripped text")
	}
	if strings.Contains(g.FilterComplex(), "drawtext") {
		t.Fatalf("drawtext stage should not have been added")
	}
}

func TestSanitizeOverlayText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain prompt", "plain prompt"},
		{"it's a 'test'", "its a test"},
		{`back\slash:colon;semi`, "backslashcolonsemi"},
		{"100% off: buy now", "100 off buy now"},
		{"multi   space\tand\nnewline", "multi space and newline"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeOverlayText(tc.in); got != tc.want {
			t.Fatalf("SanitizeOverlayText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := strings.Repeat("palavra ", 30)
	if got := SanitizeOverlayText(long); len([]rune(got)) > 60 {
		t.Fatalf("sanitized text exceeds cap: %d runes", len([]rune(got)))
	}
}
