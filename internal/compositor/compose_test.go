package compositor

import (
	"context"
	"strings"
	"testing"
	"time"

	"promoforge/internal/concept"
	"promoforge/internal/providers/video"
)

func testRequest() video.Request {
	return video.Request{
		Prompt:      "curso de marketing digital",
		AspectRatio: video.AspectLandscape,
		Style:       "cinematic",
		Duration:    4,
	}
}

func TestComposeSyntheticProducesPayload(t *testing.T) {
	var args []string
	fakeEngineCommand(t, "success", &args)

	comp := New(NewEngine(WithTimeout(5 * time.Second)))
	profile := concept.Map("curso de marketing digital", "cinematic")
	data, err := comp.ComposeSynthetic(context.Background(), profile, testRequest())
	if err != nil {
		t.Fatalf("ComposeSynthetic: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty payload")
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "color=c="+profile.PrimaryColor) {
		t.Fatalf("synthetic graph missing primary color source: %s", joined)
	}
	if !strings.Contains(joined, "blend=all_mode="+string(profile.BlendMode)) {
		t.Fatalf("synthetic graph missing blend mode: %s", joined)
	}
	if !strings.Contains(joined, "zoompan") {
		t.Fatalf("synthetic graph missing zoompan: %s", joined)
	}
}

func TestComposeFromImageFeedsImageInput(t *testing.T) {
	var args []string
	fakeEngineCommand(t, "success", &args)

	comp := New(NewEngine(WithTimeout(5 * time.Second)))
	profile := concept.Map("app de fitness", "")
	data, err := comp.ComposeFromImage(context.Background(), []byte("fake-png-bytes"), profile, testRequest())
	if err != nil {
		t.Fatalf("ComposeFromImage: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty payload")
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-loop 1") {
		t.Fatalf("image graph should loop the still input: %s", joined)
	}
	if !strings.Contains(joined, "source.img") {
		t.Fatalf("image graph should reference the written source image: %s", joined)
	}
	if strings.Contains(joined, "blend=") {
		t.Fatalf("image mode must not add synthetic blend layers: %s", joined)
	}
}

func TestComposeFromImageRejectsEmptyImage(t *testing.T) {
	comp := New(NewEngine())
	if _, err := comp.ComposeFromImage(context.Background(), nil, concept.Map("x", ""), testRequest()); err == nil {
		t.Fatal("expected error for empty source image")
	}
}

func TestComposeWithoutEngine(t *testing.T) {
	var comp *Compositor
	if _, err := comp.ComposeSynthetic(context.Background(), concept.Map("x", ""), testRequest()); err == nil {
		t.Fatal("expected error for nil compositor")
	}
}
