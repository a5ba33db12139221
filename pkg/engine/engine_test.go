package engine

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/pinyinserve/pkg/fuzzy"
	"github.com/bastiangx/pinyinserve/pkg/lang"
	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/bastiangx/pinyinserve/pkg/rank"
	"github.com/bastiangx/pinyinserve/pkg/segment"
	"github.com/bastiangx/pinyinserve/pkg/syllable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *lexicon.Index {
	t.Helper()
	idx := lexicon.New(lexicon.DefaultOptions())
	n := idx.Load([]lexicon.Record{
		{Sequence: syllable.Of("ni", "hao"), Word: "你好", Score: 100},
		{Sequence: syllable.Of("ni", "hao"), Word: "你号", Score: 10},
		{Sequence: syllable.Of("ni"), Word: "你", Score: 80},
		{Sequence: syllable.Of("qu"), Word: "趣", Score: 50},
		{Sequence: syllable.Of("qu"), Word: "去", Score: 50},
		{Sequence: syllable.Of("qu"), Word: "取", Score: 50},
		{Sequence: syllable.Of("wo"), Word: "我", Score: 90},
		{Sequence: syllable.Of("zhi", "dao"), Word: "知道", Score: 60},
	})
	require.Equal(t, 8, n)
	return idx
}

type recorder struct {
	ch chan Result
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Result, 64)}
}

func (r *recorder) handle(res Result) {
	r.ch <- res
}

func (r *recorder) next(t *testing.T) Result {
	t.Helper()
	select {
	case res := <-r.ch:
		return res
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no result delivered")
		return Result{}
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *recorder) {
	t.Helper()
	rec := newRecorder()
	opts = append([]Option{WithHandler(rec.handle)}, opts...)
	e := New(lang.NewChinese(), testIndex(t), rank.NewScorer(rank.NewContextModel(0)), opts...)
	t.Cleanup(e.Stop)
	return e, rec
}

func TestPredictRanksByFrequency(t *testing.T) {
	e, rec := newTestEngine(t)

	e.Predict("", "nihao")
	res := rec.next(t)

	assert.Equal(t, "nihao", res.Word)
	assert.Equal(t, []string{"你好", "你号"}, res.Suggestions)
	assert.Equal(t, AwaitingSelection, e.State())
}

func TestSelectionStrengthensCandidate(t *testing.T) {
	e, rec := newTestEngine(t)

	e.Predict("", "nihao")
	before := rec.next(t)
	require.Equal(t, "你号", before.Candidates[1].Word)
	rankBefore := before.Candidates[1].CombinedRank

	e.WordCandidateSelected("你号")
	assert.Equal(t, Idle, e.State())

	e.Predict("", "nihao")
	after := rec.next(t)
	var rankAfter float64
	for _, c := range after.Candidates {
		if c.Word == "你号" {
			rankAfter = c.CombinedRank
		}
	}
	assert.Greater(t, rankAfter, rankBefore)

	score, ok := e.Index().Score(syllable.Of("ni", "hao"), "你号")
	require.True(t, ok)
	assert.Equal(t, int64(10+DefaultOptions().ReinforceDelta), score)

	// 30 + 4*20 overtakes 100
	for range 4 {
		e.WordCandidateSelected("你号")
		e.Predict("", "nihao")
		after = rec.next(t)
	}
	assert.Equal(t, []string{"你号", "你好"}, after.Suggestions)
}

func TestContextBoostBreaksTies(t *testing.T) {
	e, _ := newTestEngine(t)

	cold := e.Suggest("我", "qu")
	require.Equal(t, []string{"趣", "去", "取"}, cold.Suggestions)

	e.scorer.Model().Boost(rank.ContextKeys("我", 2), "去", 1)

	warm := e.Suggest("我", "qu")
	assert.Equal(t, []string{"去", "趣", "取"}, warm.Suggestions)

	other := e.Suggest("你", "qu")
	assert.Equal(t, []string{"趣", "去", "取"}, other.Suggestions)
}

func TestSelectionLearnsContext(t *testing.T) {
	e, rec := newTestEngine(t)

	e.Predict("我", "qu")
	rec.next(t)
	e.WordCandidateSelected("去")

	assert.Equal(t, 1.0, e.scorer.Model().Lookup("我", "去"))

	res := e.Suggest("我", "qu")
	assert.Equal(t, "去", res.Suggestions[0])
}

func TestEmptyPreedit(t *testing.T) {
	e, rec := newTestEngine(t)

	e.Predict("我", "")
	res := rec.next(t)

	assert.NotNil(t, res.Suggestions)
	assert.Empty(t, res.Suggestions)
	assert.Empty(t, res.Unmatched)
}

func TestNoCandidate(t *testing.T) {
	e, _ := newTestEngine(t)

	res := e.Suggest("", "zuo")
	assert.NotNil(t, res.Suggestions)
	assert.Empty(t, res.Suggestions)
}

func TestInvalidSuffix(t *testing.T) {
	e, _ := newTestEngine(t)
	want := e.Suggest("", "nihao").Suggestions

	tests := []struct {
		preedit   string
		unmatched string
	}{
		{"nihao#", "#"},
		{"nihao1", "1"},
		{"nihao?", "?"},
	}
	for _, tt := range tests {
		t.Run(tt.preedit, func(t *testing.T) {
			res := e.Suggest("", tt.preedit)
			assert.Equal(t, want, res.Suggestions)
			assert.Equal(t, tt.unmatched, res.Unmatched)
		})
	}
}

func TestPartialSyllable(t *testing.T) {
	e, _ := newTestEngine(t)

	res := e.Suggest("", "nih")
	assert.Equal(t, []string{"你好", "你号"}, res.Suggestions)
}

func TestPredictLonger(t *testing.T) {
	e, _ := newTestEngine(t)

	res := e.Suggest("", "ni")
	require.Equal(t, []string{"你", "你好", "你号"}, res.Suggestions)
	assert.Equal(t, 80.0, res.Candidates[0].BaseScore)
	assert.Equal(t, 50.0, res.Candidates[1].BaseScore)

	o := e.Options()
	o.PredictLonger = false
	e.SetOptions(o)
	res = e.Suggest("", "ni")
	assert.Equal(t, []string{"你"}, res.Suggestions)
}

func TestSuggestionsAreSorted(t *testing.T) {
	e, _ := newTestEngine(t)

	for _, preedit := range []string{"ni", "nih", "nihao", "qu", "n"} {
		res := e.Suggest("我", preedit)
		assert.True(t, sort.SliceIsSorted(res.Candidates, func(i, j int) bool {
			return rank.Less(res.Candidates[i], res.Candidates[j])
		}), preedit)
	}
}

func TestMaxSuggestions(t *testing.T) {
	e, _ := newTestEngine(t)

	o := e.Options()
	o.MaxSuggestions = 2
	e.SetOptions(o)
	assert.Len(t, e.Suggest("", "qu").Suggestions, 2)

	e2 := New(lang.NewChinese(lang.WithMaxSuggestions(1)), testIndex(t), nil)
	defer e2.Stop()
	assert.Equal(t, []string{"趣"}, e2.Suggest("", "qu").Suggestions)
}

func TestFuzzyVariants(t *testing.T) {
	features := lang.NewChinese()
	x, err := fuzzy.NewExpander(features, []string{"zh:z"}, 4)
	require.NoError(t, err)
	e, _ := newTestEngine(t, WithFuzzy(x))

	res := e.Suggest("", "zidao")
	require.Equal(t, []string{"知道"}, res.Suggestions)
	assert.Equal(t, 30.0, res.Candidates[0].BaseScore)
	assert.True(t, res.Candidates[0].Source.Equal(syllable.Of("zhi", "dao")))
}

func TestSupersession(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	var delivered []Result
	doneCh := make(chan struct{})
	first := true

	handler := func(res Result) {
		mu.Lock()
		delivered = append(delivered, res)
		wait := first
		first = false
		mu.Unlock()
		if wait {
			close(started)
			<-release
			return
		}
		close(doneCh)
	}
	e := New(lang.NewChinese(), testIndex(t), nil, WithHandler(handler))
	defer e.Stop()

	e.Predict("", "ni")
	<-started
	e.Predict("", "nih")
	e.Predict("", "niha")
	latest := e.Submit(Request{Preedit: "nihao", Tag: "last"})
	close(release)

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "latest request never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 2)
	assert.Equal(t, "ni", delivered[0].Word)
	assert.Equal(t, "nihao", delivered[1].Word)
	assert.Equal(t, "last", delivered[1].Tag)
	assert.Equal(t, latest, delivered[1].Seq)
	assert.Less(t, delivered[0].Seq, delivered[1].Seq)
}

func TestNewPredictDiscardsWindow(t *testing.T) {
	e, rec := newTestEngine(t)

	e.Predict("", "nihao")
	rec.next(t)
	e.Predict("", "qu")
	e.WordCandidateSelected("你号")
	rec.next(t)

	score, _ := e.Index().Score(syllable.Of("ni", "hao"), "你号")
	assert.Equal(t, int64(10), score)
}

func TestDesyncSelectionIsNoop(t *testing.T) {
	e, rec := newTestEngine(t)

	e.WordCandidateSelected("你好")
	assert.Equal(t, Idle, e.State())

	e.Predict("", "nihao")
	rec.next(t)

	e.WordCandidateSelected("你")
	e.WordCandidateSelected("您好")
	assert.Equal(t, AwaitingSelection, e.State())

	seqs := map[string]syllable.Sequence{
		"你":  syllable.Of("ni"),
		"你好": syllable.Of("ni", "hao"),
		"你号": syllable.Of("ni", "hao"),
	}
	want := map[string]int64{"你": 80, "你好": 100, "你号": 10}
	for w, seq := range seqs {
		score, ok := e.Index().Score(seq, w)
		require.True(t, ok)
		assert.Equal(t, want[w], score, w)
	}
	_, ok := e.Index().Score(syllable.Of("nin", "hao"), "您好")
	assert.False(t, ok)
	assert.Equal(t, 3, e.Stats()["desyncs"])
}

func TestSelectionTimeout(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	e, rec := newTestEngine(t, WithClock(clock))

	e.Predict("", "nihao")
	rec.next(t)

	mu.Lock()
	now = now.Add(DefaultOptions().SelectionTimeout + time.Second)
	mu.Unlock()

	e.WordCandidateSelected("你号")
	assert.Equal(t, Idle, e.State())
	score, _ := e.Index().Score(syllable.Of("ni", "hao"), "你号")
	assert.Equal(t, int64(10), score)
	assert.Equal(t, 1, e.Stats()["expired"])
}

func TestStop(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Stop()
	e.Stop()
	assert.Zero(t, e.Submit(Request{Preedit: "ni"}))
}

func TestHostStubs(t *testing.T) {
	e, _ := newTestEngine(t)

	e.SpellCheckerSuggest("nihao", 5)
	e.AddToSpellCheckerUserWordList("你好")
	assert.False(t, e.SetLanguage("en-US"))
	assert.Equal(t, "zh-CN", e.LanguageFeature().LanguageID())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "predicting", Predicting.String())
	assert.Equal(t, "awaiting-selection", AwaitingSelection.String())
}

func TestSetOptionsSanitizes(t *testing.T) {
	e, _ := newTestEngine(t)

	e.SetOptions(Options{ReinforceDelta: -1, PrefixPenalty: 3, MaxSuggestions: -2})
	o := e.Options()
	assert.Equal(t, DefaultOptions().ReinforceDelta, o.ReinforceDelta)
	assert.Equal(t, DefaultOptions().PrefixPenalty, o.PrefixPenalty)
	assert.Zero(t, o.MaxSuggestions)
}

func TestScorerWithoutModel(t *testing.T) {
	rec := newRecorder()
	e := New(lang.NewChinese(), testIndex(t), rank.NewScorer(nil), WithHandler(rec.handle))
	t.Cleanup(e.Stop)
	require.NotNil(t, e.Context())

	e.Predict("我", "qu")
	rec.next(t)
	assert.NotPanics(t, func() { e.WordCandidateSelected("去") })
	assert.Equal(t, 1, e.Stats()["selections"])
	assert.Equal(t, 1.0, e.Context().Lookup("我", "去"))
}

func TestToneSignificantPrediction(t *testing.T) {
	idx := lexicon.New(lexicon.Options{ToneSignificant: true})
	idx.Load([]lexicon.Record{
		{Sequence: syllable.Sequence{{Text: "ni", Tone: 3}, {Text: "hao", Tone: 3}}, Word: "你好", Score: 100},
		{Sequence: syllable.Sequence{{Text: "ni", Tone: 2}, {Text: "hao", Tone: 3}}, Word: "拟好", Score: 50},
	})
	e := New(lang.NewChinese(lang.WithToneSignificance(true)), idx, nil)
	t.Cleanup(e.Stop)

	tests := []struct {
		preedit string
		want    []string
	}{
		{"ni3hao3", []string{"你好"}},
		{"ni2hao3", []string{"拟好"}},
		{"ni4hao3", []string{}},
		{"nihao", []string{"你好", "拟好"}},
		{"nihao3", []string{"你好", "拟好"}},
	}
	for _, tt := range tests {
		t.Run(tt.preedit, func(t *testing.T) {
			res := e.Suggest("", tt.preedit)
			assert.Equal(t, tt.want, res.Suggestions)
			assert.Empty(t, res.Unmatched)
		})
	}
}

func TestSwapSegmentOptionsAndFuzzy(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Empty(t, e.Suggest("", "nih").Unmatched)
	e.SetSegmentOptions(segment.Options{AllowPartial: false})
	res := e.Suggest("", "nih")
	assert.Equal(t, "h", res.Unmatched)
	assert.Equal(t, "你", res.Suggestions[0])

	assert.Empty(t, e.Suggest("", "zidao").Suggestions)
	x, err := fuzzy.NewExpander(e.LanguageFeature(), []string{"zh:z"}, 4)
	require.NoError(t, err)
	e.SetFuzzy(x)
	assert.Equal(t, []string{"知道"}, e.Suggest("", "zidao").Suggestions)
	e.SetFuzzy(nil)
	assert.Empty(t, e.Suggest("", "zidao").Suggestions)
}
