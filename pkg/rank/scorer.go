// Package rank combines lexicon frequency with local context into a final,
// deterministic candidate order.
//
// CombinedRank = BaseScore*Weights.Base + ContextScore*Weights.Context.
// Without any context match ContextScore is 0 and candidates rank by base
// score alone.
package rank

// Weights are the linear coefficients of CombinedRank.
type Weights struct {
	Base    float64
	Context float64
}

// DefaultWeights favors a learned context pair over a modest frequency gap.
func DefaultWeights() Weights {
	return Weights{Base: 1, Context: 10}
}

// Scorer ranks candidate sets against a ContextModel.
type Scorer struct {
	model *ContextModel
}

// NewScorer creates a scorer reading model.
func NewScorer(model *ContextModel) *Scorer {
	return &Scorer{model: model}
}

// Model returns the context model the scorer reads.
func (s *Scorer) Model() *ContextModel {
	return s.model
}

// Score fills ContextScore and CombinedRank for surroundingLeft and sorts.
func (s *Scorer) Score(cands []Candidate, surroundingLeft string, maxTokens int, w Weights) []Candidate {
	return s.ScoreKeys(cands, ContextKeys(surroundingLeft, maxTokens), w)
}

// ScoreKeys is Score with pre-extracted context keys. The slice is modified in
// place and returned.
func (s *Scorer) ScoreKeys(cands []Candidate, keys []string, w Weights) []Candidate {
	for i := range cands {
		ctx := 0.0
		if s.model != nil && len(keys) > 0 {
			ctx = s.model.Score(keys, cands[i].Word)
		}
		cands[i].ContextScore = ctx
		cands[i].CombinedRank = cands[i].BaseScore*w.Base + ctx*w.Context
	}
	Sort(cands)
	return cands
}
