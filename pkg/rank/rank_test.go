package rank

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextKeys(t *testing.T) {
	tests := []struct {
		name string
		left string
		max  int
		want []string
	}{
		{"han runes", "我想去", 2, []string{"去", "想去"}},
		{"fewer tokens than max", "去", 3, []string{"去"}},
		{"clause after punctuation", "你好，我", 3, []string{"我"}},
		{"ascii punctuation", "ok. 我们", 2, []string{"们", "我们"}},
		{"latin runs", "Hello World", 2, []string{"world", "helloworld"}},
		{"mixed", "用Go写", 3, []string{"写", "go写", "用go写"}},
		{"ends in punctuation", "你好。", 2, nil},
		{"empty", "", 2, nil},
		{"no tokens wanted", "我想去", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContextKeys(tt.left, tt.max))
		})
	}
}

func TestSortOrder(t *testing.T) {
	cands := []Candidate{
		{Word: "c", CombinedRank: 10, BaseScore: 10, Order: 3},
		{Word: "a", CombinedRank: 20, BaseScore: 5, Order: 9},
		{Word: "d", CombinedRank: 10, BaseScore: 10, Order: 1},
		{Word: "b", CombinedRank: 10, BaseScore: 12, Order: 7},
	}
	Sort(cands)
	assert.Equal(t, []string{"a", "b", "d", "c"}, Words(cands))
}

func TestSortIsTotal(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	cands := make([]Candidate, 200)
	for i := range cands {
		cands[i] = Candidate{
			CombinedRank: float64(r.IntN(5)),
			BaseScore:    float64(r.IntN(5)),
			Order:        uint64(i),
		}
	}
	shuffled := append([]Candidate(nil), cands...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	Sort(cands)
	Sort(shuffled)
	assert.Equal(t, cands, shuffled)
	assert.True(t, sort.SliceIsSorted(cands, func(i, j int) bool { return Less(cands[i], cands[j]) }))
}

func TestContextModel(t *testing.T) {
	m := NewContextModel(0)
	m.Boost([]string{"去", "想去"}, "玩", 1)
	m.Boost([]string{"去"}, "玩", 1)

	assert.Equal(t, 2.0, m.Lookup("去", "玩"))
	assert.Equal(t, 1.0, m.Lookup("想去", "玩"))
	assert.Zero(t, m.Lookup("去", "看"))

	// key i counts KeyWeight(i+1)
	assert.Equal(t, 2.0*1+1.0*2, m.Score([]string{"去", "想去"}, "玩"))
	assert.Zero(t, m.Score(nil, "玩"))

	m.Boost([]string{"去"}, "", 1)
	m.Boost(nil, "玩", 1)
	m.Boost([]string{"去"}, "玩", 0)
	assert.Equal(t, 2.0, m.Lookup("去", "玩"))

	stats := m.Stats()
	assert.Equal(t, 2, stats["contextKeys"])
	assert.Equal(t, 2, stats["contextPairs"])
	assert.Equal(t, DefaultMaxContexts, stats["maxContexts"])
}

func TestContextModelEvictsLeastRecentlyBoosted(t *testing.T) {
	m := NewContextModel(2)
	m.Boost([]string{"a"}, "x", 1)
	m.Boost([]string{"b"}, "x", 1)
	m.Boost([]string{"a"}, "y", 1)
	m.Boost([]string{"c"}, "x", 1)

	assert.Equal(t, 2, m.Len())
	assert.Zero(t, m.Lookup("b", "x"))
	assert.Equal(t, 1.0, m.Lookup("a", "y"))
	assert.Equal(t, 1.0, m.Lookup("c", "x"))
}

func TestScorer(t *testing.T) {
	m := NewContextModel(0)
	s := NewScorer(m)
	require.Same(t, m, s.Model())

	cands := []Candidate{
		{Word: "趣", BaseScore: 50, Order: 1},
		{Word: "去", BaseScore: 50, Order: 2},
		{Word: "取", BaseScore: 40, Order: 3},
	}

	got := s.Score(cands, "我", 2, DefaultWeights())
	assert.Equal(t, []string{"趣", "去", "取"}, Words(got))
	for _, c := range got {
		assert.Zero(t, c.ContextScore)
		assert.Equal(t, c.BaseScore, c.CombinedRank)
	}

	m.Boost(ContextKeys("我", 2), "取", 2)
	got = s.Score(cands, "我", 2, DefaultWeights())
	assert.Equal(t, []string{"取", "趣", "去"}, Words(got))
	assert.Equal(t, 40+2*10.0, got[0].CombinedRank)

	// a context weight of zero ignores the model
	got = s.Score(cands, "我", 2, Weights{Base: 1})
	assert.Equal(t, []string{"趣", "去", "取"}, Words(got))

	got = NewScorer(nil).ScoreKeys(cands, []string{"我"}, DefaultWeights())
	assert.Equal(t, []string{"趣", "去", "取"}, Words(got))
}
