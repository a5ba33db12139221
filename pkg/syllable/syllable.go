// Package syllable models romanized syllables and the sequences a preedit is split into.
//
// A Sequence renders to a trie key where syllables are joined with Separator.
// Complete sequences end with a trailing separator so that "ni'" never matches
// "nin'" during prefix walks, while a sequence ending in a partial syllable does
// not, so "ni'h" reaches "ni'hao'" and "ni'hui'".
package syllable

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Separator is the explicit syllable boundary used both in preedit and in keys.
const Separator = '\''

// MaxTone is the highest tone number; 5 is the neutral tone.
const MaxTone = 5

var (
	ErrEmptySyllable = errors.New("empty syllable")
	ErrInvalidTone   = errors.New("invalid tone")
)

// Syllable is a normalized phonetic token. Tone 0 means unspecified.
type Syllable struct {
	Text    string
	Tone    int
	Partial bool
}

// New returns a complete syllable without tone.
func New(text string) Syllable {
	return Syllable{Text: text}
}

// String renders the syllable with its tone digit, if any.
func (s Syllable) String() string {
	if s.Tone == 0 {
		return s.Text
	}
	return fmt.Sprintf("%s%d", s.Text, s.Tone)
}

// Sequence is one segmentation hypothesis.
type Sequence []Syllable

// Of builds a complete, toneless sequence from plain texts.
func Of(texts ...string) Sequence {
	seq := make(Sequence, len(texts))
	for i, t := range texts {
		seq[i] = New(t)
	}
	return seq
}

// Equal compares sequences element-wise.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// IsPartial reports whether the last syllable is incomplete.
func (s Sequence) IsPartial() bool {
	return len(s) > 0 && s[len(s)-1].Partial
}

// PartialCount returns how many syllables are marked partial.
func (s Sequence) PartialCount() int {
	n := 0
	for _, syl := range s {
		if syl.Partial {
			n++
		}
	}
	return n
}

// Key renders the toneless trie key for the sequence.
func (s Sequence) Key() string {
	if len(s) == 0 {
		return ""
	}
	var b strings.Builder
	for i, syl := range s {
		if i > 0 {
			b.WriteRune(Separator)
		}
		b.WriteString(syl.Text)
	}
	if !s.IsPartial() {
		b.WriteRune(Separator)
	}
	return b.String()
}

// Complete returns a copy with every syllable marked complete.
func (s Sequence) Complete() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	for i := range out {
		out[i].Partial = false
	}
	return out
}

// Clone returns an independent copy.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// String renders the sequence with separators and tone digits ("ni3'hao3").
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, syl := range s {
		parts[i] = syl.String()
	}
	return strings.Join(parts, string(Separator))
}

// Texts returns the toneless syllable texts.
func (s Sequence) Texts() []string {
	out := make([]string, len(s))
	for i, syl := range s {
		out[i] = syl.Text
	}
	return out
}

// toneMarks maps combining diacritics to pinyin tone numbers.
var toneMarks = map[rune]int{
	'\u0304': 1, // macron
	'\u0301': 2, // acute
	'\u030C': 3, // caron
	'\u0300': 4, // grave
}

const diaeresis = '\u0308'

// Parse normalizes a single written syllable. It accepts tone digits ("hao3"),
// tone diacritics ("hǎo") and ü written as "ü", "u:" or "v".
func Parse(token string) (Syllable, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Syllable{}, ErrEmptySyllable
	}

	tone := 0
	umlaut := false
	var b strings.Builder
	for _, r := range norm.NFD.String(token) {
		switch {
		case r == diaeresis || r == ':':
			umlaut = true
		case toneMarks[r] != 0:
			tone = toneMarks[r]
		case r >= '0' && r <= '9':
			t := int(r - '0')
			if t < 1 || t > MaxTone {
				return Syllable{}, fmt.Errorf("%w: %q", ErrInvalidTone, token)
			}
			tone = t
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}

	text := b.String()
	if umlaut {
		// pinyin never mixes u and ü in one syllable
		text = strings.ReplaceAll(text, "u", "v")
	}
	if text == "" {
		return Syllable{}, ErrEmptySyllable
	}
	return Syllable{Text: text, Tone: tone}, nil
}

// ParseSequence splits a written sequence on Separator and whitespace.
func ParseSequence(s string) (Sequence, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == Separator || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil, ErrEmptySyllable
	}
	seq := make(Sequence, 0, len(fields))
	for _, f := range fields {
		syl, err := Parse(f)
		if err != nil {
			return nil, err
		}
		seq = append(seq, syl)
	}
	return seq, nil
}
