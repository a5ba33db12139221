// Package lang holds the per-language capability objects the engine queries.
//
// A Features value answers read-only questions about the phonetic alphabet
// (which runes may appear in a preedit, which strings are syllables) and about
// presentation (how many suggestions to show). The engine never branches on the
// language id; swapping the Features value is enough to target another variant.
package lang

// Features is the capability set of one phonetic input language.
type Features interface {
	// LanguageID is the BCP 47 tag of the target language.
	LanguageID() string
	// IsAlphabet reports whether r may appear inside a syllable.
	IsAlphabet(r rune) bool
	// IsSyllable reports whether s is a complete, valid syllable.
	IsSyllable(s string) bool
	// IsSyllablePrefix reports whether s is a non-empty prefix of some syllable.
	IsSyllablePrefix(s string) bool
	// MaxSyllableLen is the length in bytes of the longest syllable.
	MaxSyllableLen() int
	// ToneSignificant reports whether tone digits disambiguate candidates.
	ToneSignificant() bool
	// MaxSuggestions bounds the length of a suggestion list.
	MaxSuggestions() int
	AlwaysShowSuggestions() bool
	AutoCompleteOnSpace() bool
	// WordSeparators lists runes that commit the preedit when typed.
	WordSeparators() string
}
