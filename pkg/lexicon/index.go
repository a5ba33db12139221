// Package lexicon maps syllable sequences to candidate words with scores.
//
// Entries live in a patricia trie keyed by syllable.Sequence.Key, so a partial
// trailing syllable turns into a plain subtree walk. The trie structure is
// guarded by a RWMutex taken exclusively only by inserts. Reinforcement does
// not touch the structure: it holds a dedicated writer mutex and bumps the
// entry score atomically, so lookups keep running while it happens.
package lexicon

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bastiangx/pinyinserve/pkg/syllable"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

var (
	ErrNoEntry       = errors.New("no matching lexicon entry")
	ErrEmptySequence = errors.New("empty syllable sequence")
	ErrEmptyWord     = errors.New("empty word")
	ErrInvalidDelta  = errors.New("reinforcement delta must be positive")

	errVisitLimit = errors.New("visit limit reached")
)

// Mode selects how a sequence is matched against keys.
type Mode int

const (
	// Exact returns entries whose key equals the sequence key.
	Exact Mode = iota
	// Prefix returns entries whose key starts with the sequence key.
	Prefix
)

func (m Mode) String() string {
	if m == Prefix {
		return "prefix"
	}
	return "exact"
}

// Entry is one (sequence, word) pair. Key and Word never change after insert.
type Entry struct {
	Key      string
	Sequence syllable.Sequence
	Word     string
	score    atomic.Int64
	order    uint64
}

// Score returns the current base score.
func (e *Entry) Score() int64 {
	return e.score.Load()
}

// Order is the global insertion rank, used as the final ranking tie-break.
func (e *Entry) Order() uint64 {
	return e.order
}

// Record is the bulk-load form of an entry.
type Record struct {
	Sequence syllable.Sequence
	Word     string
	Score    int64
}

// Options tune lookups.
type Options struct {
	// MaxPrefixResults bounds a prefix walk.
	MaxPrefixResults int
	// ToneSignificant filters entries whose tones contradict a toned query.
	ToneSignificant bool
}

// DefaultOptions returns the lookup bounds used when none are configured.
func DefaultOptions() Options {
	return Options{MaxPrefixResults: 256}
}

// bucket holds all words sharing one key.
type bucket struct {
	entries []*Entry
	byWord  map[string]*Entry
}

// Index is the lexicon. The zero value is not usable; call New.
type Index struct {
	mu          sync.RWMutex
	reinforceMu sync.Mutex
	trie        *patricia.Trie
	opts        Options
	keys        int
	entries     int
	nextOrder   uint64
}

// New creates an empty index.
func New(opts Options) *Index {
	if opts.MaxPrefixResults < 1 {
		opts.MaxPrefixResults = DefaultOptions().MaxPrefixResults
	}
	return &Index{
		trie: patricia.NewTrie(),
		opts: opts,
	}
}

// Insert adds word under seq. Inserting an existing (sequence, word) pair adds
// score to the existing entry instead of duplicating it.
func (idx *Index) Insert(seq syllable.Sequence, word string, score int64) error {
	if len(seq) == 0 {
		return ErrEmptySequence
	}
	if word == "" {
		return ErrEmptyWord
	}
	seq = seq.Complete()
	key := seq.Key()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var b *bucket
	if item := idx.trie.Get(patricia.Prefix(key)); item != nil {
		b = item.(*bucket)
	} else {
		b = &bucket{byWord: make(map[string]*Entry, 1)}
		idx.trie.Insert(patricia.Prefix(key), b)
		idx.keys++
	}

	if e, ok := b.byWord[word]; ok {
		e.score.Add(score)
		return nil
	}

	idx.nextOrder++
	e := &Entry{
		Key:      key,
		Sequence: seq.Clone(),
		Word:     word,
		order:    idx.nextOrder,
	}
	e.score.Store(score)
	b.entries = append(b.entries, e)
	b.byWord[word] = e
	idx.entries++
	return nil
}

// Load bulk-inserts records and returns how many were accepted.
func (idx *Index) Load(records []Record) int {
	loaded := 0
	for _, r := range records {
		if err := idx.Insert(r.Sequence, r.Word, r.Score); err != nil {
			log.Warnf("Skipping lexicon record %q -> %q: %v", r.Sequence.String(), r.Word, err)
			continue
		}
		loaded++
	}
	log.Debugf("Loaded %d of %d lexicon records", loaded, len(records))
	return loaded
}

// Lookup returns the entries matching seq under mode.
func (idx *Index) Lookup(seq syllable.Sequence, mode Mode) ([]*Entry, error) {
	if len(seq) == 0 {
		return nil, ErrEmptySequence
	}
	key := seq.Key()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []*Entry
	switch mode {
	case Exact:
		item := idx.trie.Get(patricia.Prefix(key))
		if item == nil {
			return nil, nil
		}
		out = idx.collect(out, key, item.(*bucket), seq, 0)
	case Prefix:
		limit := idx.opts.MaxPrefixResults
		err := idx.trie.VisitSubtree(patricia.Prefix(key), func(p patricia.Prefix, item patricia.Item) error {
			out = idx.collect(out, string(p), item.(*bucket), seq, limit)
			if len(out) >= limit {
				return errVisitLimit
			}
			return nil
		})
		if err != nil && !errors.Is(err, errVisitLimit) {
			return out, fmt.Errorf("prefix lookup %q: %w", key, err)
		}
	default:
		return nil, fmt.Errorf("unknown lookup mode %d", mode)
	}
	return out, nil
}

// collect appends the valid entries of b, stopping at limit when limit > 0.
func (idx *Index) collect(out []*Entry, key string, b *bucket, query syllable.Sequence, limit int) []*Entry {
	if len(b.byWord) != len(b.entries) {
		invariantFailed("bucket %q has %d entries but %d indexed words", key, len(b.entries), len(b.byWord))
	}
	for _, e := range b.entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if e.Key != key || b.byWord[e.Word] != e {
			invariantFailed("entry %q under key %q does not own its slot", e.Word, key)
			continue
		}
		if idx.opts.ToneSignificant && !tonesAgree(query, e.Sequence) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// tonesAgree is false only when both sides specify different tones for a syllable.
func tonesAgree(query, entry syllable.Sequence) bool {
	for i, q := range query {
		if i >= len(entry) {
			break
		}
		if q.Tone != 0 && entry[i].Tone != 0 && q.Tone != entry[i].Tone {
			return false
		}
	}
	return true
}

// Reinforce adds delta to the entry for (seq, word). It never creates entries.
func (idx *Index) Reinforce(seq syllable.Sequence, word string, delta int64) error {
	if delta <= 0 {
		return ErrInvalidDelta
	}
	if len(seq) == 0 {
		return ErrEmptySequence
	}
	key := seq.Complete().Key()

	idx.mu.RLock()
	var e *Entry
	if item := idx.trie.Get(patricia.Prefix(key)); item != nil {
		e = item.(*bucket).byWord[word]
	}
	idx.mu.RUnlock()

	if e == nil {
		return fmt.Errorf("reinforce %q -> %q: %w", key, word, ErrNoEntry)
	}

	idx.reinforceMu.Lock()
	e.score.Add(delta)
	idx.reinforceMu.Unlock()
	return nil
}

// Score returns the current score of (seq, word).
func (idx *Index) Score(seq syllable.Sequence, word string) (int64, bool) {
	key := seq.Complete().Key()
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	item := idx.trie.Get(patricia.Prefix(key))
	if item == nil {
		return 0, false
	}
	e, ok := item.(*bucket).byWord[word]
	if !ok {
		return 0, false
	}
	return e.Score(), true
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entries
}

// Verify walks the whole index and reports the first structural violation.
func (idx *Index) Verify() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	count := 0
	err := idx.trie.Visit(func(p patricia.Prefix, item patricia.Item) error {
		b, ok := item.(*bucket)
		if !ok {
			return fmt.Errorf("%w: key %q holds %T", ErrCorrupt, p, item)
		}
		if len(b.byWord) != len(b.entries) {
			return fmt.Errorf("%w: key %q has %d entries, %d words", ErrCorrupt, p, len(b.entries), len(b.byWord))
		}
		for _, e := range b.entries {
			if e.Key != string(p) || b.byWord[e.Word] != e {
				return fmt.Errorf("%w: entry %q misplaced under %q", ErrCorrupt, e.Word, p)
			}
		}
		count += len(b.entries)
		return nil
	})
	if err != nil {
		return err
	}
	if count != idx.entries {
		return fmt.Errorf("%w: counted %d entries, expected %d", ErrCorrupt, count, idx.entries)
	}
	return nil
}

// Stats returns basic numbers about the index.
func (idx *Index) Stats() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	maxScore := int64(0)
	_ = idx.trie.Visit(func(_ patricia.Prefix, item patricia.Item) error {
		for _, e := range item.(*bucket).entries {
			if s := e.Score(); s > maxScore {
				maxScore = s
			}
		}
		return nil
	})
	return map[string]int{
		"keys":     idx.keys,
		"entries":  idx.entries,
		"maxScore": int(maxScore),
	}
}
