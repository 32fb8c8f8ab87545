package speech

import "testing"

// TestDetect tests language detection across scripts and keyword sets.
func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "empty text", text: "", want: "en"},
		{name: "whitespace only", text: "  \n ", want: "en"},
		{name: "japanese kana", text: "これはテストです", want: "ja"},
		{name: "japanese kana with kanji", text: "日本語のテキストです", want: "ja"},
		{name: "chinese han only", text: "这是一个测试", want: "zh"},
		{name: "korean hangul", text: "안녕하세요", want: "ko"},
		{name: "russian cyrillic", text: "Привет, мир", want: "ru"},
		{name: "arabic", text: "مرحبا بالعالم", want: "ar"},
		{name: "hindi devanagari", text: "नमस्ते दुनिया", want: "hi"},
		{name: "english keywords", text: "the cat and the dog are friends", want: "en"},
		{name: "french keywords", text: "Bonjour le monde, c'est une belle journée pour nous", want: "fr"},
		{name: "german keywords", text: "Das ist ein Test und das ist auch nicht schlecht", want: "de"},
		{name: "spanish keywords", text: "Hola mundo, este es el texto para usted", want: "es"},
		{name: "unrecognized text falls back", text: "xyzzy plugh qwfp", want: "en"},
		{name: "numbers fall back", text: "12345 67890", want: "en"},
	}

	d := NewDetector("en")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

// TestDetectScriptBeatsKeywords tests that script detection runs before
// keyword counting even when Latin keywords are present.
func TestDetectScriptBeatsKeywords(t *testing.T) {
	d := NewDetector("en")
	if got := d.Detect("the following is Japanese: こんにちは"); got != "ja" {
		t.Errorf("mixed text detected as %q, want ja", got)
	}
}

// TestDetectTieGoesToDefault tests that a keyword-count tie between two
// languages resolves to the default rather than whichever was tested
// first.
func TestDetectTieGoesToDefault(t *testing.T) {
	d := NewDetector("en")
	// "la" scores for French and "el" for Spanish, one hit each.
	if got := d.Detect("la el"); got != "en" {
		t.Errorf("tied text detected as %q, want the default en", got)
	}
}

// TestDetectRespectsConfiguredDefault tests that the fallback language is
// the configured one.
func TestDetectRespectsConfiguredDefault(t *testing.T) {
	d := NewDetector("de")
	if got := d.Detect("xyzzy"); got != "de" {
		t.Errorf("Detect fallback = %q, want de", got)
	}
	if d.Default() != "de" {
		t.Errorf("Default() = %q, want de", d.Default())
	}
}

// TestDefaultProfilesOrder tests that kana languages precede Chinese so
// kanji-bearing Japanese is not misdetected.
func TestDefaultProfilesOrder(t *testing.T) {
	profiles := DefaultProfiles()
	pos := map[string]int{}
	for i, p := range profiles {
		pos[p.Code] = i
	}
	if pos["ja"] > pos["zh"] {
		t.Error("Japanese must come before Chinese in profile order")
	}
	for _, p := range profiles {
		if p.Canonical == "" || len(p.Variants) == 0 || p.Fallback == "" {
			t.Errorf("profile %s is incomplete: %+v", p.Code, p)
		}
	}
}
