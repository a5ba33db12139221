package rank

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ContextKeys extracts the context keys of surroundingLeft.
//
// Only the clause after the last punctuation rune counts. Whitespace is
// skipped. Every Han rune is a token on its own, since committed Chinese text
// carries no word boundaries; a run of other letters or digits is one token.
// Keys are the last 1..maxTokens tokens joined, shortest first.
func ContextKeys(surroundingLeft string, maxTokens int) []string {
	if maxTokens < 1 {
		return nil
	}
	text := norm.NFC.String(surroundingLeft)
	if i := strings.LastIndexFunc(text, unicode.IsPunct); i >= 0 {
		_, size := utf8.DecodeRuneInString(text[i:])
		text = text[i+size:]
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	n := min(maxTokens, len(tokens))
	keys := make([]string, 0, n)
	for l := 1; l <= n; l++ {
		keys = append(keys, strings.Join(tokens[len(tokens)-l:], ""))
	}
	return keys
}

// KeyWeight is how much a key of the given token count counts in scoring.
func KeyWeight(tokens int) float64 {
	return float64(tokens)
}

func tokenize(text string) []string {
	var tokens []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			tokens = append(tokens, run.String())
			run.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			run.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}
