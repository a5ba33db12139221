package rank

import (
	"sort"

	"github.com/bastiangx/pinyinserve/pkg/syllable"
)

// Candidate is one proposed word for the current preedit.
type Candidate struct {
	Word   string
	Source syllable.Sequence
	// BaseScore is the lexicon frequency after lookup penalties.
	BaseScore    float64
	ContextScore float64
	CombinedRank float64
	// Order is the lexicon insertion rank of the source entry.
	Order uint64
}

// Less is the suggestion order: CombinedRank desc, BaseScore desc, Order asc.
func Less(a, b Candidate) bool {
	if a.CombinedRank != b.CombinedRank {
		return a.CombinedRank > b.CombinedRank
	}
	if a.BaseScore != b.BaseScore {
		return a.BaseScore > b.BaseScore
	}
	return a.Order < b.Order
}

// Sort orders candidates in place.
func Sort(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return Less(cands[i], cands[j])
	})
}

// Words extracts the word column.
func Words(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Word
	}
	return out
}
