// Package segment splits a raw preedit into candidate syllable sequences.
//
// Enumeration is a bounded depth-first search trying the longest syllable
// first, so the first hypothesis is always the greedy maximal one. Input the
// alphabet cannot cover is never an error: the recognized prefix is segmented
// and the remainder is reported as an unmatched literal.
package segment

import (
	"iter"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/pinyinserve/pkg/lang"
	"github.com/bastiangx/pinyinserve/pkg/syllable"
	"github.com/charmbracelet/log"
	"golang.org/x/text/width"
)

// Options bound the segmentation fan-out.
type Options struct {
	// MaxSegmentations caps the hypotheses returned per preedit.
	MaxSegmentations int
	// MaxSteps caps the search nodes visited, bounding latency by input length.
	MaxSteps int
	// AllowPartial lets a trailing fragment become a partial syllable.
	AllowPartial bool
}

// DefaultOptions returns the bounds used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxSegmentations: 8,
		MaxSteps:         512,
		AllowPartial:     true,
	}
}

// Segmenter is safe for concurrent use; it holds no per-call state.
type Segmenter struct {
	features lang.Features
	opts     Options
}

// New creates a segmenter for the given language.
func New(features lang.Features, opts Options) *Segmenter {
	def := DefaultOptions()
	if opts.MaxSegmentations < 1 {
		opts.MaxSegmentations = def.MaxSegmentations
	}
	if opts.MaxSteps < 1 {
		opts.MaxSteps = def.MaxSteps
	}
	return &Segmenter{features: features, opts: opts}
}

// Options returns the effective bounds.
func (s *Segmenter) Options() Options {
	return s.opts
}

// Result describes one preedit's segmentation space.
type Result struct {
	// Preedit is the normalized input.
	Preedit string
	// Consumed is the recognized prefix the sequences cover.
	Consumed string
	// Unmatched is the literal suffix no syllable could cover.
	Unmatched string

	seg     *Segmenter
	letters string
	forced  []bool
	tones   map[int]int
}

// Normalize folds full-width latin to ASCII, lowercases, and writes ü as v.
func Normalize(preedit string) string {
	s := width.Narrow.String(preedit)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "ü", "v")
}

// Segment scans preedit and prepares the lazy enumeration.
func (s *Segmenter) Segment(preedit string) Result {
	normalized := Normalize(preedit)
	res := Result{Preedit: normalized, seg: s, tones: make(map[int]int)}

	var letters strings.Builder
	// offsets[i] is the byte offset of letter i in normalized
	var offsets []int
	forced := []bool{false}
	end := len(normalized)

scan:
	for i, r := range normalized {
		switch {
		case s.features.IsAlphabet(r):
			offsets = append(offsets, i)
			letters.WriteRune(r)
			forced = append(forced, false)
		case r == syllable.Separator:
			forced[len(forced)-1] = true
		case s.features.ToneSignificant() && r >= '1' && r <= '0'+syllable.MaxTone:
			n := letters.Len()
			if n == 0 {
				end = i
				break scan
			}
			res.tones[n] = int(r - '0')
			forced[len(forced)-1] = true
		default:
			end = i
			break scan
		}
	}
	offsets = append(offsets, end)

	res.letters = letters.String()
	res.forced = forced
	covered := res.coverage()
	if covered < len(res.letters) {
		log.Debugf("segment: %q covered up to %d of %d letters", normalized, covered, len(res.letters))
		end = offsets[covered]
		res.letters = res.letters[:covered]
		res.forced = res.forced[:covered+1]
	}
	res.Consumed = normalized[:end]
	res.Unmatched = normalized[end:]
	return res
}

// coverage returns how many letters a segmentation can consume.
func (r Result) coverage() int {
	n := len(r.letters)
	if n == 0 {
		return 0
	}
	f := r.seg.features
	maxLen := f.MaxSyllableLen()
	reach := make([]bool, n+1)
	reach[0] = true
	best := 0
	for i := 0; i < n; i++ {
		if !reach[i] {
			continue
		}
		for l := 1; l <= maxLen && i+l <= n; l++ {
			if r.crossesBoundary(i, i+l) {
				break
			}
			piece := r.letters[i : i+l]
			if f.IsSyllable(piece) {
				reach[i+l] = true
			}
			if r.seg.opts.AllowPartial && f.IsSyllablePrefix(piece) && i+l > best {
				best = i + l
			}
		}
	}
	for i := n; i > best; i-- {
		if reach[i] {
			return i
		}
	}
	if reach[n] {
		return n
	}
	return best
}

// crossesBoundary reports whether an explicit boundary lies strictly inside [from, to).
func (r Result) crossesBoundary(from, to int) bool {
	for i := from + 1; i < to; i++ {
		if r.forced[i] {
			return true
		}
	}
	return false
}

// All yields the hypotheses in rank order. Each range re-runs the search.
func (r Result) All() iter.Seq[syllable.Sequence] {
	return func(yield func(syllable.Sequence) bool) {
		for _, seq := range r.enumerate() {
			if !yield(seq) {
				return
			}
		}
	}
}

// Collect returns All as a slice.
func (r Result) Collect() []syllable.Sequence {
	return slices.Collect(r.All())
}

// Empty reports whether nothing could be segmented.
func (r Result) Empty() bool {
	return len(r.letters) == 0
}

func (r Result) enumerate() []syllable.Sequence {
	if len(r.letters) == 0 || r.seg == nil {
		return nil
	}
	opts := r.seg.opts
	f := r.seg.features
	n := len(r.letters)
	maxLen := f.MaxSyllableLen()

	var found []syllable.Sequence
	steps := 0
	acc := make(syllable.Sequence, 0, n)

	var dfs func(pos int) bool
	dfs = func(pos int) bool {
		if len(found) >= opts.MaxSegmentations || steps >= opts.MaxSteps {
			return false
		}
		steps++
		if pos == n {
			found = append(found, acc.Clone())
			return true
		}
		limit := min(maxLen, n-pos)
		for l := limit; l >= 1; l-- {
			if r.crossesBoundary(pos, pos+l) {
				continue
			}
			piece := r.letters[pos : pos+l]
			syl := syllable.Syllable{Text: piece, Tone: r.tones[pos+l]}
			switch {
			case f.IsSyllable(piece):
			case opts.AllowPartial && pos+l == n && f.IsSyllablePrefix(piece):
				syl.Partial = true
			default:
				continue
			}
			acc = append(acc, syl)
			ok := dfs(pos + l)
			acc = acc[:len(acc)-1]
			if !ok {
				return false
			}
		}
		return true
	}
	dfs(0)

	if len(found) > 1 {
		rest := found[1:]
		sort.SliceStable(rest, func(i, j int) bool {
			if len(rest[i]) != len(rest[j]) {
				return len(rest[i]) < len(rest[j])
			}
			return rest[i].PartialCount() < rest[j].PartialCount()
		})
	}
	return found
}

// RuneCount returns the number of runes in the consumed prefix.
func (r Result) RuneCount() int {
	return utf8.RuneCountInString(r.Consumed)
}
