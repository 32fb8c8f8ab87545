package speech

import (
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// Resolver selects the best voice for a language from a catalog snapshot
// via a fixed-priority cascade. Resolution is deterministic: given the same
// snapshot, language and explicit-voice input, it always returns the same
// voice.
type Resolver struct {
	profiles map[string]LanguageProfile
	logger   *log.Logger
}

// NewResolver creates a resolver over the given language profiles.
func NewResolver(profiles []LanguageProfile, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	m := make(map[string]LanguageProfile, len(profiles))
	for _, p := range profiles {
		m[p.Code] = p
	}
	return &Resolver{profiles: m, logger: logger}
}

// Resolve picks a voice from the snapshot. The cascade, each step tried
// only if the prior yields nothing:
//
//  1. explicit name: exact match, then case-insensitive substring, then
//     backend handle (URI-like) match
//  2. exact locale match against the profile's variants, in the profile's
//     declared priority order
//  3. any voice sharing the profile's 2-letter language prefix
//  4. the first voice in the snapshot, regardless of locale
//
// A nil result means the snapshot is empty; callers must speak without an
// explicit voice rather than treat this as an error. Voices with an empty
// locale are never matched by steps 2-3 but can still win step 4.
func (r *Resolver) Resolve(languageCode string, snap Snapshot, explicitName string) *Voice {
	if snap.Empty() {
		return nil
	}

	if explicitName != "" {
		if v := r.byName(snap, explicitName); v != nil {
			return v
		}
		r.logger.Debug("explicit voice not found, falling back to locale match", "voice", explicitName)
	}

	profile, ok := r.profiles[languageCode]
	if ok {
		for _, variant := range profile.Variants {
			want := canonicalTag(variant)
			for i := range snap.Voices {
				if snap.Voices[i].Locale == "" {
					continue
				}
				if canonicalTag(snap.Voices[i].Locale) == want {
					return &snap.Voices[i]
				}
			}
		}
		if v := r.byPrefix(snap, profile.Fallback); v != nil {
			return v
		}
	} else if v := r.byPrefix(snap, languageCode); v != nil {
		return v
	}

	// Absolute fallback: speaking with a mismatched voice beats refusing
	// to speak at all.
	return &snap.Voices[0]
}

func (r *Resolver) byName(snap Snapshot, name string) *Voice {
	for i := range snap.Voices {
		if snap.Voices[i].Name == name {
			return &snap.Voices[i]
		}
	}
	lower := strings.ToLower(name)
	for i := range snap.Voices {
		if strings.Contains(strings.ToLower(snap.Voices[i].Name), lower) {
			return &snap.Voices[i]
		}
	}
	for i := range snap.Voices {
		if snap.Voices[i].Handle != "" && strings.EqualFold(snap.Voices[i].Handle, name) {
			return &snap.Voices[i]
		}
	}
	return nil
}

func (r *Resolver) byPrefix(snap Snapshot, code string) *Voice {
	prefix := primarySubtag(code)
	if prefix == "" {
		return nil
	}
	for i := range snap.Voices {
		if snap.Voices[i].Locale == "" {
			continue
		}
		if primarySubtag(snap.Voices[i].Locale) == prefix {
			return &snap.Voices[i]
		}
	}
	return nil
}

// canonicalTag normalizes a locale tag ("en_us", "EN-US") to its BCP 47
// canonical form. Unparseable tags fall back to a lowercase comparison key
// so odd backend tags still compare consistently.
func canonicalTag(tag string) string {
	normalized := strings.ReplaceAll(tag, "_", "-")
	if t, err := language.Parse(normalized); err == nil {
		return t.String()
	}
	return strings.ToLower(normalized)
}

// primarySubtag returns the lowercase 2-letter (or 3-letter) language
// subtag of a locale tag.
func primarySubtag(tag string) string {
	normalized := strings.ReplaceAll(tag, "_", "-")
	if i := strings.IndexByte(normalized, '-'); i >= 0 {
		normalized = normalized[:i]
	}
	return strings.ToLower(normalized)
}
