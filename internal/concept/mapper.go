// Package concept derives deterministic visual parameters from a free-text
// prompt and a style tag. The profile drives synthetic composition when no
// remote vendor produces a result, so the mapping must be stable: the same
// prompt and style always yield the same profile.
package concept

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BlendMode selects how synthetic color layers are combined.
type BlendMode string

const (
	BlendScreen    BlendMode = "screen"
	BlendOverlay   BlendMode = "overlay"
	BlendSoftLight BlendMode = "softlight"
	BlendLighten   BlendMode = "lighten"
)

// Profile is the derived palette plus motion parameters. Colors are 0xRRGGBB
// hex strings as accepted by the compositing engine's color sources.
type Profile struct {
	Name            string
	PrimaryColor    string
	SecondaryColor  string
	AccentColor     string
	BlendMode       BlendMode
	ZoomSpeed       float64
	MaxZoom         float64
	MotionAmplitude float64
	MotionFrequency float64
}

type keywordSet struct {
	keywords []string
	profile  Profile
}

// Keyword sets are checked in order; the first set containing any keyword of
// the normalized prompt wins and takes precedence over the style table.
var keywordSets = []keywordSet{
	{
		keywords: []string{"marketing", "business", "venda", "vendas", "sales", "negocio", "empresa", "startup", "funil", "funnel", "cliente"},
		profile: Profile{
			Name:            "marketing",
			PrimaryColor:    "0x1B2A4A",
			SecondaryColor:  "0xF2A33C",
			AccentColor:     "0xF5F1E8",
			BlendMode:       BlendOverlay,
			ZoomSpeed:       0.0012,
			MaxZoom:         1.25,
			MotionAmplitude: 14,
			MotionFrequency: 0.22,
		},
	},
	{
		keywords: []string{"tech", "tecnologia", "digital", "software", "app", "dados", "data", "inteligencia"},
		profile: Profile{
			Name:            "tech",
			PrimaryColor:    "0x0B1026",
			SecondaryColor:  "0x2EE6D6",
			AccentColor:     "0x7C5CFF",
			BlendMode:       BlendScreen,
			ZoomSpeed:       0.0018,
			MaxZoom:         1.35,
			MotionAmplitude: 22,
			MotionFrequency: 0.35,
		},
	},
	{
		keywords: []string{"saude", "health", "wellness", "fitness", "yoga", "bem-estar", "nutricao", "dieta"},
		profile: Profile{
			Name:            "health",
			PrimaryColor:    "0x10301F",
			SecondaryColor:  "0x7BCB9A",
			AccentColor:     "0xEFF7E8",
			BlendMode:       BlendSoftLight,
			ZoomSpeed:       0.0008,
			MaxZoom:         1.18,
			MotionAmplitude: 9,
			MotionFrequency: 0.15,
		},
	},
	{
		keywords: []string{"curso", "aula", "educacao", "education", "learning", "ensino", "mentoria", "ebook", "workshop"},
		profile: Profile{
			Name:            "education",
			PrimaryColor:    "0x23204F",
			SecondaryColor:  "0xE8B14E",
			AccentColor:     "0xFFFBF0",
			BlendMode:       BlendOverlay,
			ZoomSpeed:       0.0010,
			MaxZoom:         1.22,
			MotionAmplitude: 12,
			MotionFrequency: 0.20,
		},
	},
}

var styleProfiles = map[string]Profile{
	"cinematic": {
		Name:            "cinematic",
		PrimaryColor:    "0x101418",
		SecondaryColor:  "0xB3541E",
		AccentColor:     "0xE8D8C3",
		BlendMode:       BlendSoftLight,
		ZoomSpeed:       0.0009,
		MaxZoom:         1.30,
		MotionAmplitude: 10,
		MotionFrequency: 0.12,
	},
	"minimal": {
		Name:            "minimal",
		PrimaryColor:    "0xF4F4F2",
		SecondaryColor:  "0xC9C9C4",
		AccentColor:     "0x202020",
		BlendMode:       BlendLighten,
		ZoomSpeed:       0.0006,
		MaxZoom:         1.12,
		MotionAmplitude: 6,
		MotionFrequency: 0.10,
	},
	"vibrant": {
		Name:            "vibrant",
		PrimaryColor:    "0xD7263D",
		SecondaryColor:  "0xF46036",
		AccentColor:     "0x2E294E",
		BlendMode:       BlendScreen,
		ZoomSpeed:       0.0020,
		MaxZoom:         1.40,
		MotionAmplitude: 26,
		MotionFrequency: 0.42,
	},
	"abstract": {
		Name:            "abstract",
		PrimaryColor:    "0x3A0CA3",
		SecondaryColor:  "0xF72585",
		AccentColor:     "0x4CC9F0",
		BlendMode:       BlendOverlay,
		ZoomSpeed:       0.0016,
		MaxZoom:         1.33,
		MotionAmplitude: 20,
		MotionFrequency: 0.30,
	},
	"dark": {
		Name:            "dark",
		PrimaryColor:    "0x0A0A0A",
		SecondaryColor:  "0x3F3F46",
		AccentColor:     "0xD4AF37",
		BlendMode:       BlendLighten,
		ZoomSpeed:       0.0011,
		MaxZoom:         1.24,
		MotionAmplitude: 11,
		MotionFrequency: 0.18,
	},
}

var defaultProfile = Profile{
	Name:            "default",
	PrimaryColor:    "0x1F2430",
	SecondaryColor:  "0x5A7D9A",
	AccentColor:     "0xE3B505",
	BlendMode:       BlendOverlay,
	ZoomSpeed:       0.0010,
	MaxZoom:         1.20,
	MotionAmplitude: 12,
	MotionFrequency: 0.20,
}

// Map resolves a profile from the prompt and style. Resolution order is
// fixed: prompt keyword sets first, then the style table, then the default.
// The keyword check always wins over the style, so a "tech startup marketing
// plan" prompt styled "abstract" resolves through its keyword set, not the
// abstract style entry.
func Map(prompt, style string) Profile {
	normalized := Normalize(prompt)
	for _, set := range keywordSets {
		for _, kw := range set.keywords {
			if strings.Contains(normalized, kw) {
				return set.profile
			}
		}
	}

	if p, ok := styleProfiles[Normalize(style)]; ok {
		return p
	}

	return defaultProfile
}

// Normalize lowercases the input and strips diacritics so that keyword
// matching works for accented prompts ("educação" matches "educacao").
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
