// Package fuzzy expands syllable sequences with commonly confused pinyin
// variants (zh/z, n/l, ing/in ...), so a user typing "zi" can still reach
// words keyed under "zhi".
package fuzzy

import (
	"fmt"
	"strings"

	"github.com/bastiangx/pinyinserve/pkg/lang"
	"github.com/bastiangx/pinyinserve/pkg/syllable"
)

// DefaultPairs are the confusions most pinyin users expect.
var DefaultPairs = []string{"zh:z", "ch:c", "sh:s", "n:l", "ing:in", "eng:en", "ang:an"}

// Pair is one symmetric confusion.
type Pair struct {
	A, B string
}

// ParsePair reads the "a:b" form used in config files.
func ParsePair(s string) (Pair, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || a == "" || b == "" || a == b {
		return Pair{}, fmt.Errorf("invalid fuzzy pair %q, expected a:b", s)
	}
	return Pair{A: a, B: b}, nil
}

// Expander produces fuzzy variants of sequences. It is read-only after
// construction and safe for concurrent use.
type Expander struct {
	features    lang.Features
	pairs       []Pair
	maxVariants int
}

// NewExpander builds an expander from "a:b" pairs. maxVariants below 1 means 4.
func NewExpander(features lang.Features, pairs []string, maxVariants int) (*Expander, error) {
	e := &Expander{
		features:    features,
		maxVariants: maxVariants,
	}
	if e.maxVariants < 1 {
		e.maxVariants = 4
	}
	for _, p := range pairs {
		pair, err := ParsePair(p)
		if err != nil {
			return nil, err
		}
		e.pairs = append(e.pairs, pair)
	}
	return e, nil
}

// Pairs returns the configured confusions.
func (e *Expander) Pairs() []Pair {
	return e.pairs
}

// Alternatives returns the valid syllables a fuzzy reading of text may mean,
// excluding text itself, in pair order.
func (e *Expander) Alternatives(text string) []string {
	var out []string
	seen := map[string]bool{text: true}
	add := func(s string) {
		if !seen[s] && e.features.IsSyllable(s) {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, p := range e.pairs {
		for _, swap := range [][2]string{{p.A, p.B}, {p.B, p.A}} {
			from, to := swap[0], swap[1]
			if strings.HasPrefix(text, from) {
				add(to + text[len(from):])
			}
			if strings.HasSuffix(text, from) {
				add(text[:len(text)-len(from)] + to)
			}
		}
	}
	return out
}

// Variants returns up to maxVariants alternative sequences, never including
// seq itself. Partial syllables are left as typed.
func (e *Expander) Variants(seq syllable.Sequence) []syllable.Sequence {
	if len(e.pairs) == 0 || len(seq) == 0 {
		return nil
	}

	options := make([][]syllable.Syllable, len(seq))
	changed := false
	for i, syl := range seq {
		options[i] = []syllable.Syllable{syl}
		if syl.Partial {
			continue
		}
		for _, alt := range e.Alternatives(syl.Text) {
			options[i] = append(options[i], syllable.Syllable{Text: alt, Tone: syl.Tone})
			changed = true
		}
	}
	if !changed {
		return nil
	}

	var variants []syllable.Sequence
	acc := make(syllable.Sequence, len(seq))
	var walk func(i int, differs bool) bool
	walk = func(i int, differs bool) bool {
		if i == len(seq) {
			if differs {
				variants = append(variants, acc.Clone())
			}
			return len(variants) < e.maxVariants
		}
		for j, opt := range options[i] {
			acc[i] = opt
			if !walk(i+1, differs || j > 0) {
				return false
			}
		}
		return true
	}
	walk(0, false)
	return variants
}
