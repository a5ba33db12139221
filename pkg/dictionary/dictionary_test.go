package dictionary

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/pinyinserve/pkg/lexicon"
	"github.com/bastiangx/pinyinserve/pkg/syllable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		word    string
		key     string
		score   int64
		wantErr bool
	}{
		{"toned", "ni3'hao3 你好 100", "你好", "ni'hao'", 100, false},
		{"no frequency", "qu4 去", "去", "qu'", DefaultFrequency, false},
		{"diacritics", "nǐ'hǎo 你好 5", "你好", "ni'hao'", 5, false},
		{"missing word", "ni3", "", "", 0, true},
		{"bad frequency", "ni3 你 many", "", "", 0, true},
		{"negative frequency", "ni3 你 -1", "", "", 0, true},
		{"bad tone", "ni7 你 1", "", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedLine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.word, rec.Word)
			assert.Equal(t, tt.key, rec.Sequence.Key())
			assert.Equal(t, tt.score, rec.Score)
		})
	}
}

func TestReadTextSkipsCommentsAndBadLines(t *testing.T) {
	input := "# header\n\nni3'hao3 你好 100\nbroken\nni3'hao4 你号 10\n"
	records, err := ReadText(bytes.NewBufferString(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "你好", records[0].Word)
	assert.Equal(t, 4, records[1].Sequence[1].Tone)
}

func TestBinaryRoundTrip(t *testing.T) {
	records, err := Base()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, records))

	got, err := ReadBinary(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(records))
	for i := range records {
		assert.True(t, records[i].Sequence.Equal(got[i].Sequence), records[i].Word)
		assert.Equal(t, records[i].Word, got[i].Word)
		assert.Equal(t, records[i].Score, got[i].Score)
	}
}

func TestReadBinaryRejectsTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, []lexicon.Record{
		{Sequence: syllable.Of("ni"), Word: "你", Score: 1},
		{Sequence: syllable.Of("wo"), Word: "我", Score: 1},
	}))
	data := buf.Bytes()[:buf.Len()-4]

	got, err := ReadBinary(bytes.NewReader(data))
	assert.Error(t, err)
	assert.Len(t, got, 1)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectFileFormat(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "words.txt", "ni3 你 1\n")

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, nil))
	bin := writeFile(t, dir, "words.bin", buf.String())
	junk := writeFile(t, dir, "junk.bin", "not msgpack at all")
	other := writeFile(t, dir, "words.csv", "ni3,你,1\n")

	f, err := DetectFileFormat(text)
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = DetectFileFormat(bin)
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, f)

	_, err = DetectFileFormat(junk)
	assert.Error(t, err)

	_, err = DetectFileFormat(other)
	assert.Error(t, err)
}

func TestLoaderLoadsAllFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.txt", "ni3'hao3 你好 100\n")

	var buf bytes.Buffer
	require.NoError(t, WriteBinary(&buf, []lexicon.Record{
		{Sequence: syllable.Of("qu"), Word: "去", Score: 50},
	}))
	second := writeFile(t, dir, "b.bin", buf.String())

	idx := lexicon.New(lexicon.DefaultOptions())
	l := NewLoader(idx, []string{first, second})
	defer l.Stop()

	require.NoError(t, l.Start())
	_, ok := idx.Score(syllable.Of("ni", "hao"), "你好")
	assert.True(t, ok)

	l.Wait()
	stats := l.Stats()
	assert.Equal(t, 2, stats.LoadedFiles)
	assert.Equal(t, 2, stats.Records)
	assert.False(t, stats.IsLoading)
	_, ok = idx.Score(syllable.Of("qu"), "去")
	assert.True(t, ok)
}

func TestLoaderGivesUpOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.txt", "ni3 你 1\n")

	idx := lexicon.New(lexicon.DefaultOptions())
	l := NewLoader(idx, []string{first, filepath.Join(dir, "missing.txt")})
	l.retryDelay = 0
	defer l.Stop()

	require.NoError(t, l.Start())
	l.Wait()
	assert.Equal(t, 1, l.Stats().FailedFiles)
}

func TestLoaderFirstFileError(t *testing.T) {
	l := NewLoader(lexicon.New(lexicon.DefaultOptions()), []string{filepath.Join(t.TempDir(), "none.txt")})
	defer l.Stop()
	assert.Error(t, l.Start())

	assert.Error(t, NewLoader(nil, nil).Start())
}

func TestBaseDictionary(t *testing.T) {
	records, err := Base()
	require.NoError(t, err)

	idx := lexicon.New(lexicon.DefaultOptions())
	assert.Equal(t, len(records), idx.Load(records))
	require.NoError(t, idx.Verify())

	entries, err := idx.Lookup(syllable.Of("ni", "hao"), lexicon.Exact)
	require.NoError(t, err)
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		words = append(words, e.Word)
	}
	assert.ElementsMatch(t, []string{"你好", "你号"}, words)
}
