package speech

import (
	"regexp"
	"strings"
	"unicode"
)

// LanguageProfile describes one supported language: its short code, the
// canonical locale, the ordered locale variants the resolver may accept,
// and the generic fallback locale. The profile set is static configuration
// and never mutated at runtime.
type LanguageProfile struct {
	Code        string   // short tag, e.g. "en", "zh"
	DisplayName string
	Canonical   string   // canonical locale tag, e.g. "en-US"
	Variants    []string // acceptable locale variants in priority order
	Fallback    string   // generic fallback locale, usually the bare code
}

// DefaultProfiles returns the built-in language profiles in detection
// priority order. Script-range languages come first; the order matters
// because kanji are in the Han range, so Japanese kana must be tested
// before Chinese.
func DefaultProfiles() []LanguageProfile {
	return []LanguageProfile{
		{Code: "ja", DisplayName: "Japanese", Canonical: "ja-JP", Variants: []string{"ja-JP"}, Fallback: "ja"},
		{Code: "ko", DisplayName: "Korean", Canonical: "ko-KR", Variants: []string{"ko-KR"}, Fallback: "ko"},
		{Code: "zh", DisplayName: "Chinese", Canonical: "zh-CN", Variants: []string{"zh-CN", "zh-TW", "zh-HK"}, Fallback: "zh"},
		{Code: "ru", DisplayName: "Russian", Canonical: "ru-RU", Variants: []string{"ru-RU"}, Fallback: "ru"},
		{Code: "ar", DisplayName: "Arabic", Canonical: "ar-SA", Variants: []string{"ar-SA", "ar-EG"}, Fallback: "ar"},
		{Code: "hi", DisplayName: "Hindi", Canonical: "hi-IN", Variants: []string{"hi-IN"}, Fallback: "hi"},
		{Code: "en", DisplayName: "English", Canonical: "en-US", Variants: []string{"en-US", "en-GB", "en-AU"}, Fallback: "en"},
		{Code: "fr", DisplayName: "French", Canonical: "fr-FR", Variants: []string{"fr-FR", "fr-CA"}, Fallback: "fr"},
		{Code: "de", DisplayName: "German", Canonical: "de-DE", Variants: []string{"de-DE", "de-AT"}, Fallback: "de"},
		{Code: "es", DisplayName: "Spanish", Canonical: "es-ES", Variants: []string{"es-ES", "es-MX"}, Fallback: "es"},
		{Code: "it", DisplayName: "Italian", Canonical: "it-IT", Variants: []string{"it-IT"}, Fallback: "it"},
		{Code: "pt", DisplayName: "Portuguese", Canonical: "pt-BR", Variants: []string{"pt-BR", "pt-PT"}, Fallback: "pt"},
	}
}

// scriptPattern matches languages whose script ranges are unambiguous.
type scriptPattern struct {
	code   string
	ranges []*unicode.RangeTable
}

// keywordPattern matches space-delimited languages by counting hits of
// high-frequency function words.
type keywordPattern struct {
	code string
	re   *regexp.Regexp
}

// Detector detects the language of raw text. Script-range patterns are
// tested first in a fixed order; the first match wins, since these scripts
// are mutually exclusive with each other and with space-delimited text in
// practice. Only if none match are the keyword patterns counted, and the
// strictly greatest count wins. Detection never fails: ties and
// unrecognized text yield the default language.
type Detector struct {
	scripts     []scriptPattern
	keywords    []keywordPattern
	defaultCode string
}

// NewDetector creates a detector with the built-in patterns and the given
// default language code.
func NewDetector(defaultCode string) *Detector {
	return &Detector{
		defaultCode: defaultCode,
		scripts: []scriptPattern{
			{code: "ja", ranges: []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana}},
			{code: "ko", ranges: []*unicode.RangeTable{unicode.Hangul}},
			{code: "zh", ranges: []*unicode.RangeTable{unicode.Han}},
			{code: "ru", ranges: []*unicode.RangeTable{unicode.Cyrillic}},
			{code: "ar", ranges: []*unicode.RangeTable{unicode.Arabic}},
			{code: "hi", ranges: []*unicode.RangeTable{unicode.Devanagari}},
		},
		keywords: []keywordPattern{
			{code: "en", re: regexp.MustCompile(`(?i)\b(the|and|is|are|was|were|have|has|that|this|with|from|they|will|would|there|their|hello)\b`)},
			{code: "fr", re: regexp.MustCompile(`(?i)\b(le|la|les|des|une|est|et|que|qui|dans|pour|pas|vous|nous|avec|sur|bonjour|merci|monde)\b`)},
			{code: "de", re: regexp.MustCompile(`(?i)\b(der|die|das|und|ist|nicht|ein|eine|mit|sich|auf|werden|auch|wird|aber|ich|hallo)\b`)},
			{code: "es", re: regexp.MustCompile(`(?i)\b(el|los|las|una|es|en|por|para|con|como|pero|sus|este|esta|usted|hola|mundo)\b`)},
			{code: "it", re: regexp.MustCompile(`(?i)\b(il|lo|gli|uno|una|che|di|per|con|non|sono|come|anche|questo|ciao)\b`)},
			{code: "pt", re: regexp.MustCompile(`(?i)\b(os|as|um|uma|que|em|com|para|mais|isso|muito|quando|mesmo|ola)\b`)},
		},
	}
}

// Detect returns the language code for the given text. Empty or
// whitespace-only text returns the default language.
func (d *Detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return d.defaultCode
	}

	for _, sp := range d.scripts {
		for _, r := range text {
			if unicode.In(r, sp.ranges...) {
				return sp.code
			}
		}
	}

	// The strictly greatest count wins; ties, including the all-zero
	// case, resolve to the default language.
	best := d.defaultCode
	bestCount := 0
	tied := false
	for _, kp := range d.keywords {
		n := len(kp.re.FindAllStringIndex(text, -1))
		switch {
		case n > bestCount:
			best, bestCount, tied = kp.code, n, false
		case n == bestCount && n > 0:
			tied = true
		}
	}
	if tied || bestCount == 0 {
		return d.defaultCode
	}
	return best
}

// Default returns the detector's default language code.
func (d *Detector) Default() string { return d.defaultCode }
