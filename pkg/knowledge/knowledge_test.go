package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	src := `{"data": [
		{"question": "When was the faculty founded?", "answer": "1969"},
		{"question": "Where is the faculty located?", "answer": "Letna 9, Kosice"}
	]}`

	base, err := Parse(strings.NewReader(src), FormatJSON)
	require.NoError(t, err)
	require.Equal(t, 2, base.Len())

	assert.Equal(t, "1969", base.At(0).Answer)
	assert.Equal(t, "Where is the faculty located?", base.At(1).Question)
	assert.True(t, base.Contains("1969"))
	assert.False(t, base.Contains("1970"))
}

func TestParseYAML(t *testing.T) {
	src := `
data:
  - question: Who leads the faculty?
    answer: The dean.
`
	base, err := Parse(strings.NewReader(src), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, 1, base.Len())
	assert.Equal(t, "The dean.", base.At(0).Answer)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"malformed", `{"data": [`, ErrMalformed},
		{"missing data", `{"items": []}`, ErrMissingData},
		{"empty question", `{"data": [{"question": "  ", "answer": "x"}]}`, ErrEmptyQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src), FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var le *LoadError
			assert.True(t, errors.As(err, &le))
		})
	}
}

func TestParseEmptyDataIsValid(t *testing.T) {
	base, err := Parse(strings.NewReader(`{"data": []}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 0, base.Len())
}

func TestLoadPicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "kb.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"data":[{"question":"q","answer":"a"}]}`), 0o644))

	yamlPath := filepath.Join(dir, "kb.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("data:\n  - question: q\n    answer: a\n"), 0o644))

	for _, path := range []string{jsonPath, yamlPath} {
		base, err := Load(path)
		require.NoError(t, err, path)
		assert.Equal(t, 1, base.Len())
		assert.Equal(t, path, base.Source())
	}
}

func TestLoadErrorCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestEntriesReturnsCopy(t *testing.T) {
	base := New(Entry{Question: "q", Answer: "a"})

	entries := base.Entries()
	entries[0].Answer = "changed"

	assert.Equal(t, "a", base.At(0).Answer)
}
