package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatWithCommas(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatWithCommas(tt.in))
	}
}

func TestCreateRankList(t *testing.T) {
	assert.Equal(t, []uint16{1, 2, 3}, CreateRankList(3))
	assert.Empty(t, CreateRankList(0))
}

func TestParseTOMLWithRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	content := `
[engine]
reinforce_delta = 5
context_boost = 2
prefix_penalty = 0.25
selection_timeout = "10s"
bad_timeout = "soon"
pairs = ["zh:z", "n:l"]
mixed = ["a", 1]
enabled = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	data, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	section, ok := ExtractSection(data, "engine")
	require.True(t, ok)

	n, ok := ExtractInt(section, "reinforce_delta")
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	f, ok := ExtractFloat(section, "context_boost")
	assert.True(t, ok)
	assert.Equal(t, 2.0, f)
	f, ok = ExtractFloat(section, "prefix_penalty")
	assert.True(t, ok)
	assert.Equal(t, 0.25, f)

	d, ok := ExtractDuration(section, "selection_timeout")
	assert.True(t, ok)
	assert.Equal(t, 10*time.Second, d)
	_, ok = ExtractDuration(section, "bad_timeout")
	assert.False(t, ok)

	pairs, ok := ExtractStrings(section, "pairs")
	assert.True(t, ok)
	assert.Equal(t, []string{"zh:z", "n:l"}, pairs)
	_, ok = ExtractStrings(section, "mixed")
	assert.False(t, ok)

	b, ok := ExtractBool(section, "enabled")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = ExtractSection(data, "missing")
	assert.False(t, ok)
}

func TestSaveTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.toml")
	type doc struct {
		Name string `toml:"name"`
	}
	require.NoError(t, SaveTOMLFile(doc{Name: "x"}, path))

	var got doc
	require.NoError(t, LoadTOMLFile(path, &got))
	assert.Equal(t, "x", got.Name)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFindFileInPaths(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(b, "words.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(a, "words.txt"), 0o755))

	got, err := FindFileInPaths("words.txt", []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b, "words.txt"), got)

	_, err = FindFileInPaths("none.txt", []string{a, b})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveFileAbsolute(t *testing.T) {
	pr := NewPathResolver()
	path := filepath.Join(t.TempDir(), "d.txt")

	_, err := pr.ResolveFile(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	got, err := pr.ResolveFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}
