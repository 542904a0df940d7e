package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFixedValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "valid", size: 10, overlap: 2},
		{name: "zero overlap", size: 10, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "overlap equals size", size: 5, overlap: 5, wantErr: true},
		{name: "negative overlap", size: 5, overlap: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFixed(tt.size, tt.overlap)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFixedSplitWindows(t *testing.T) {
	f, err := NewFixed(3, 1)
	require.NoError(t, err)

	got := f.Split("one two three four five six seven")
	assert.Equal(t, []string{
		"one two three",
		"three four five",
		"five six seven",
	}, got)
}

func TestFixedSplitShortTail(t *testing.T) {
	f, err := NewFixed(3, 0)
	require.NoError(t, err)

	got := f.Split("a b c d")
	assert.Equal(t, []string{"a b c", "d"}, got)
}

func TestFixedSplitPreservesSourceSubstrings(t *testing.T) {
	text := "The  quick\tbrown\n\nfox   jumps over the lazy dog near the river bank today"
	f, err := NewFixed(4, 1)
	require.NoError(t, err)

	chunks := f.Split(text)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.Contains(t, text, c, "every chunk must be an exact source substring")
		assert.NotEqual(t, " ", c[:1])
		assert.NotEqual(t, " ", c[len(c)-1:])
	}

	// Every source word appears in some chunk.
	joined := strings.Join(chunks, " ")
	for _, w := range strings.Fields(text) {
		assert.Contains(t, joined, w)
	}
}

// Chunks are windows over the source's word spans: dropping each chunk's
// overlapped prefix and concatenating the rest reproduces the source word
// sequence, and the chunk spans cover the source with nothing but whitespace
// between them.
func TestFixedSplitReconstructsSource(t *testing.T) {
	text := "The  quick\tbrown\n\nfox   jumps over the lazy dog near the river bank today"
	words := strings.Fields(text)

	for _, overlap := range []int{0, 1, 2} {
		f, err := NewFixed(4, overlap)
		require.NoError(t, err)

		chunks := f.Split(text)
		require.NotEmpty(t, chunks)

		rebuilt := strings.Fields(chunks[0])
		for i := 1; i < len(chunks); i++ {
			cw := strings.Fields(chunks[i])
			require.Greater(t, len(cw), overlap)

			// The overlapped prefix repeats the previous chunk's tail.
			assert.Equal(t, rebuilt[len(rebuilt)-overlap:], cw[:overlap])
			rebuilt = append(rebuilt, cw[overlap:]...)
		}
		assert.Equal(t, words, rebuilt, "overlap %d", overlap)

		// Each chunk is the exact source span of its window, and consecutive
		// spans leave at most whitespace uncovered.
		spans := wordSpans(text)
		step := 4 - overlap
		prevEnd := 0
		for k, c := range chunks {
			start := spans[k*step].start
			end := spans[min(k*step+4, len(spans))-1].end
			assert.Equal(t, text[start:end], c)

			if start > prevEnd {
				assert.Empty(t, strings.TrimSpace(text[prevEnd:start]))
			}
			prevEnd = end
		}
		assert.Empty(t, strings.TrimSpace(text[prevEnd:]))
	}
}

func TestFixedSplitUnicode(t *testing.T) {
	text := "größer müde 日本語 βήτα gamma delta"
	f, err := NewFixed(2, 0)
	require.NoError(t, err)

	got := f.Split(text)
	assert.Equal(t, []string{"größer müde", "日本語 βήτα", "gamma delta"}, got)
}

func TestFixedSplitDegenerateInputs(t *testing.T) {
	f, err := NewFixed(3, 1)
	require.NoError(t, err)

	assert.Nil(t, f.Split(""))
	assert.Nil(t, f.Split("   \n\t  "))
	assert.Equal(t, []string{"solo"}, f.Split("solo"))
}

func TestFixedZeroValueFallsBackToDefaults(t *testing.T) {
	var f Fixed

	words := make([]string, DefaultSize+10)
	for i := range words {
		words[i] = "w"
	}

	got := f.Split(strings.Join(words, " "))
	require.Len(t, got, 2)
	assert.Len(t, strings.Fields(got[0]), DefaultSize)
	assert.Len(t, strings.Fields(got[1]), 10)
}
