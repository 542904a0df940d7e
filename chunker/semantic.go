package chunker

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultMaxSize is the default semantic packing limit, in words.
const DefaultMaxSize = 256

// Semantic splits text at sentence boundaries and greedily packs whole
// sentences into chunks of at most MaxSize words. Sentences are never split:
// a single sentence longer than MaxSize becomes its own chunk.
type Semantic struct {
	MaxSize int
}

var _ Splitter = (*Semantic)(nil)

// NewSemantic validates the packing limit.
func NewSemantic(maxSize int) (*Semantic, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("chunk max size must be positive, got %d", maxSize)
	}

	return &Semantic{MaxSize: maxSize}, nil
}

// Split implements Splitter.
func (s *Semantic) Split(text string) []string {
	maxSize := s.MaxSize
	if maxSize < 1 {
		maxSize = DefaultMaxSize
	}

	var out []string
	var cur []string
	curWords := 0

	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = cur[:0]
			curWords = 0
		}
	}

	for _, sentence := range sentences(text) {
		w := countWords(sentence)
		if curWords > 0 && curWords+w > maxSize {
			flush()
		}
		cur = append(cur, sentence)
		curWords += w
	}
	flush()

	return out
}

// sentences cuts text after '.', '!' or '?', absorbing any closing quotes or
// brackets, when the terminator is followed by whitespace or ends the text.
// Terminators inside tokens ("3.14", "v1.2.3") do not end a sentence because
// no whitespace follows them.
func sentences(text string) []string {
	var out []string
	start := 0

	appendSentence := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = end
	}

	i := 0
	for i < len(text) {
		r, size := nextRune(text, i)
		i += size

		if r != '.' && r != '!' && r != '?' {
			continue
		}

		j := i
		for j < len(text) {
			r2, size2 := nextRune(text, j)
			if !isClosing(r2) {
				break
			}
			j += size2
		}

		if j >= len(text) {
			appendSentence(j)
			i = j
			continue
		}
		if r3, _ := nextRune(text, j); unicode.IsSpace(r3) {
			appendSentence(j)
		}
		i = j
	}
	appendSentence(len(text))

	return out
}
