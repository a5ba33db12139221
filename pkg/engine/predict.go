package engine

import (
	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/bastiangx/pinyinserve/pkg/rank"
	"github.com/bastiangx/pinyinserve/pkg/syllable"
)

// compute runs one prediction and returns the result with the context keys it
// was ranked against.
func (e *Engine) compute(req Request) (Result, []string) {
	opts := e.Options()
	res := Result{
		Word:        req.Preedit,
		Tag:         req.Tag,
		Suggestions: []string{},
	}

	seg := e.segmenter.Load().Segment(req.Preedit)
	res.Unmatched = seg.Unmatched
	if seg.Empty() {
		return res, nil
	}
	keys := rank.ContextKeys(req.SurroundingLeft, opts.MaxContextTokens)

	fz := e.fuzzy.Load()
	merged := make(map[string]rank.Candidate)
	for seq := range seg.All() {
		e.collect(merged, seq, 1, opts)
		if fz == nil {
			continue
		}
		for _, variant := range fz.Variants(seq) {
			e.collect(merged, variant, opts.FuzzyPenalty, opts)
		}
	}
	if len(merged) == 0 {
		return res, keys
	}

	cands := make([]rank.Candidate, 0, len(merged))
	for _, c := range merged {
		cands = append(cands, c)
	}
	cands = e.scorer.ScoreKeys(cands, keys, opts.Weights)

	limit := opts.MaxSuggestions
	if limit == 0 {
		limit = e.features.MaxSuggestions()
	}
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	res.Candidates = cands
	res.Suggestions = rank.Words(cands)
	return res, keys
}

// collect merges the lexicon matches of one segmentation into merged. A failure
// only loses this segmentation.
func (e *Engine) collect(merged map[string]rank.Candidate, seq syllable.Sequence, factor float64, opts Options) {
	defer func() {
		if r := recover(); r != nil {
			if lexicon.StrictInvariants {
				panic(r)
			}
			e.log.Errorf("Skipping segmentation %s: %v", seq.String(), r)
		}
	}()

	if seq.IsPartial() {
		entries, err := e.index.Lookup(seq, lexicon.Prefix)
		if err != nil {
			e.log.Warnf("Prefix lookup %s: %v", seq.String(), err)
		}
		addEntries(merged, entries, factor, "")
		return
	}

	entries, err := e.index.Lookup(seq, lexicon.Exact)
	if err != nil {
		e.log.Warnf("Exact lookup %s: %v", seq.String(), err)
	}
	addEntries(merged, entries, factor, "")

	if !opts.PredictLonger {
		return
	}
	longer, err := e.index.Lookup(seq, lexicon.Prefix)
	if err != nil {
		e.log.Warnf("Prefix lookup %s: %v", seq.String(), err)
	}
	addEntries(merged, longer, factor*opts.PrefixPenalty, seq.Key())
}

// addEntries keeps, per word, the entry with the highest scaled score. Entries
// under skipKey are ignored.
func addEntries(merged map[string]rank.Candidate, entries []*lexicon.Entry, factor float64, skipKey string) {
	for _, entry := range entries {
		if skipKey != "" && entry.Key == skipKey {
			continue
		}
		c := rank.Candidate{
			Word:      entry.Word,
			Source:    entry.Sequence,
			BaseScore: float64(entry.Score()) * factor,
			Order:     entry.Order(),
		}
		prev, ok := merged[c.Word]
		if ok && (prev.BaseScore > c.BaseScore || (prev.BaseScore == c.BaseScore && prev.Order < c.Order)) {
			continue
		}
		merged[c.Word] = c
	}
}
