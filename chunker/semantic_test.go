package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain sentences",
			text: "The cat sat. The dog barked! Did it rain?",
			want: []string{"The cat sat.", "The dog barked!", "Did it rain?"},
		},
		{
			name: "closing quote after terminator",
			text: `He said "stop." Then he left.`,
			want: []string{`He said "stop."`, "Then he left."},
		},
		{
			name: "closing bracket after terminator",
			text: "It worked (finally!) Everyone cheered.",
			want: []string{"It worked (finally!)", "Everyone cheered."},
		},
		{
			name: "dots inside tokens do not split",
			text: "Release v1.2.3 shipped at 3.14 pm. It was stable.",
			want: []string{"Release v1.2.3 shipped at 3.14 pm.", "It was stable."},
		},
		{
			name: "ellipsis ends a sentence",
			text: "Wait... it moved.",
			want: []string{"Wait...", "it moved."},
		},
		{
			name: "no terminator",
			text: "an unterminated fragment",
			want: []string{"an unterminated fragment"},
		},
		{
			name: "trailing fragment",
			text: "Done. And then",
			want: []string{"Done.", "And then"},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sentences(tt.text))
		})
	}
}

func TestSemanticPacksSentences(t *testing.T) {
	s, err := NewSemantic(10)
	require.NoError(t, err)

	// 5 + 5 + 5 words: first two sentences fill a chunk exactly.
	text := "One two three four five. Six seven eight nine ten. Eleven twelve thirteen fourteen fifteen."
	got := s.Split(text)
	assert.Equal(t, []string{
		"One two three four five. Six seven eight nine ten.",
		"Eleven twelve thirteen fourteen fifteen.",
	}, got)
}

func TestSemanticNeverSplitsASentence(t *testing.T) {
	s, err := NewSemantic(3)
	require.NoError(t, err)

	text := "This sentence runs well past the limit on its own. Short one."
	got := s.Split(text)
	require.Len(t, got, 2)
	assert.Equal(t, "This sentence runs well past the limit on its own.", got[0])
	assert.Equal(t, "Short one.", got[1])
}

func TestSemanticChunksRespectLimit(t *testing.T) {
	s, err := NewSemantic(8)
	require.NoError(t, err)

	var b strings.Builder
	for i := 0; i < 12; i++ {
		b.WriteString("Tiny little sentence here. ")
	}

	for _, chunk := range s.Split(b.String()) {
		words := countWords(chunk)
		assert.LessOrEqual(t, words, 8)

		// Chunks are whole sentences: they end with a terminator.
		assert.True(t, strings.HasSuffix(chunk, "."), "chunk %q", chunk)
	}
}

func TestSemanticDegenerateInputs(t *testing.T) {
	s, err := NewSemantic(10)
	require.NoError(t, err)

	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("  \n "))

	_, err = NewSemantic(0)
	require.Error(t, err)
}
