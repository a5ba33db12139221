package segment

import (
	"strings"
	"testing"

	"github.com/bastiangx/pinyinserve/pkg/lang"
	"github.com/bastiangx/pinyinserve/pkg/syllable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render shows a sequence as "ni hao" with a trailing * on partial syllables.
func render(seqs []syllable.Sequence) []string {
	out := make([]string, len(seqs))
	for i, seq := range seqs {
		parts := make([]string, len(seq))
		for j, syl := range seq {
			parts[j] = syl.String()
			if syl.Partial {
				parts[j] += "*"
			}
		}
		out[i] = strings.Join(parts, " ")
	}
	return out
}

func newSegmenter(opts ...lang.Option) *Segmenter {
	return New(lang.NewChinese(opts...), DefaultOptions())
}

func TestSegment(t *testing.T) {
	s := newSegmenter()
	tests := []struct {
		preedit string
		want    []string
	}{
		{"nihao", []string{"ni hao", "ni ha o"}},
		{"xian", []string{"xian", "xi an", "xia n*", "xi a n*"}},
		{"xi'an", []string{"xi an", "xi a n*"}},
		{"nih", []string{"ni h*"}},
		{"zh", []string{"zh*"}},
		{"a", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.preedit, func(t *testing.T) {
			res := s.Segment(tt.preedit)
			assert.Equal(t, tt.want, render(res.Collect()))
			assert.Empty(t, res.Unmatched)
		})
	}
}

func TestSegmentFirstIsGreedy(t *testing.T) {
	res := newSegmenter().Segment("zhongguoren")
	seqs := res.Collect()
	require.NotEmpty(t, seqs)
	assert.Equal(t, []string{"zhong", "guo", "ren"}, seqs[0].Texts())
	for _, seq := range seqs {
		assert.Equal(t, "zhongguoren", strings.Join(seq.Texts(), ""))
	}
}

func TestSegmentUnmatched(t *testing.T) {
	s := newSegmenter()
	tests := []struct {
		preedit   string
		consumed  string
		unmatched string
	}{
		{"nihao#", "nihao", "#"},
		{"nihao1", "nihao", "1"},
		{"ni hao", "ni", " hao"},
		{"zzz", "z", "zz"},
		{"123", "", "123"},
		{"你好", "", "你好"},
	}
	for _, tt := range tests {
		t.Run(tt.preedit, func(t *testing.T) {
			res := s.Segment(tt.preedit)
			assert.Equal(t, tt.consumed, res.Consumed)
			assert.Equal(t, tt.unmatched, res.Unmatched)
			assert.Equal(t, tt.consumed+tt.unmatched, res.Preedit)
		})
	}
}

func TestSegmentEmpty(t *testing.T) {
	s := newSegmenter()
	for _, in := range []string{"", "'", "123"} {
		res := s.Segment(in)
		assert.True(t, res.Empty(), in)
		assert.Empty(t, res.Collect(), in)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "nihao", Normalize("NiHao"))
	assert.Equal(t, "ni", Normalize("ｎｉ"))
	assert.Equal(t, "nv", Normalize("nü"))

	res := newSegmenter().Segment("ＮＩＨＡＯ")
	assert.Equal(t, "ni hao", render(res.Collect())[0])
	assert.Equal(t, 5, res.RuneCount())
}

func TestSegmentTones(t *testing.T) {
	s := newSegmenter(lang.WithToneSignificance(true))
	res := s.Segment("ni3hao3")
	seqs := res.Collect()
	require.NotEmpty(t, seqs)
	assert.Equal(t, "ni3 hao3", render(seqs)[0])
	assert.Empty(t, res.Unmatched)

	// without tone significance a digit ends the recognized input
	res = newSegmenter().Segment("ni3hao3")
	assert.Equal(t, "ni", res.Consumed)
	assert.Equal(t, "3hao3", res.Unmatched)
}

func TestSegmentBounds(t *testing.T) {
	features := lang.NewChinese()

	s := New(features, Options{MaxSegmentations: 1})
	assert.Len(t, s.Segment("xian").Collect(), 1)
	assert.Equal(t, DefaultOptions().MaxSteps, s.Options().MaxSteps)

	s = New(features, Options{MaxSegmentations: 100, MaxSteps: 3})
	assert.LessOrEqual(t, len(s.Segment("xianxianxian").Collect()), 3)

	long := strings.Repeat("a", 200)
	s = New(features, DefaultOptions())
	seqs := s.Segment(long).Collect()
	assert.LessOrEqual(t, len(seqs), DefaultOptions().MaxSegmentations)
}

func TestSegmentWithoutPartial(t *testing.T) {
	s := New(lang.NewChinese(), Options{AllowPartial: false})
	res := s.Segment("nih")
	assert.Equal(t, []string{"ni"}, render(res.Collect()))
	assert.Equal(t, "h", res.Unmatched)
}

func TestAllStopsEarly(t *testing.T) {
	res := newSegmenter().Segment("xian")
	n := 0
	for range res.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
