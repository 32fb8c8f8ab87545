package speech

import "unicode"

// Token is one spoken word with its byte anchors in the source text. The
// anchors let a rendering adapter map highlight transitions back onto the
// displayed document.
type Token struct {
	Text  string
	Start int // byte offset of the first rune in the source text
	End   int // byte offset one past the last rune
}

// Words tokenizes text into word tokens. A word is a maximal run of
// letters, digits, and intra-word punctuation (apostrophes and hyphens
// between letters). Logographic scripts have no space-delimited words, so
// each Han/Hiragana/Katakana rune becomes its own token; this keeps the
// highlight cursor moving at a plausible per-character pace.
func Words(text string) []Token {
	var tokens []Token
	start := -1

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, Token{Text: text[start:end], Start: start, End: end})
			start = -1
		}
	}

	for i, r := range text {
		switch {
		case isLogographic(r):
			flush(i)
			end := i + len(string(r))
			tokens = append(tokens, Token{Text: text[i:end], Start: i, End: end})
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start < 0 {
				start = i
			}
		case (r == '\'' || r == '’' || r == '-') && start >= 0:
			// Keep intra-word punctuation: "don't", "well-known".
		default:
			flush(i)
		}
	}
	flush(len(text))

	// Trailing punctuation kept above may dangle when a word ends the text
	// ("well-"). Trim it so anchors stay on spoken characters.
	for i := range tokens {
		t := &tokens[i]
		for len(t.Text) > 0 {
			last := t.Text[len(t.Text)-1]
			if last != '\'' && last != '-' {
				break
			}
			t.Text = t.Text[:len(t.Text)-1]
			t.End--
		}
	}
	return tokens
}

func isLogographic(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}
