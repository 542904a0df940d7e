package chunker

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Default window geometry, in words.
const (
	DefaultSize    = 256
	DefaultOverlap = 32
)

// Fixed splits text into windows of Size words advancing by Size-Overlap.
// Each chunk is the exact source substring spanning its words, so original
// whitespace inside a chunk is preserved and every chunk can be located in
// the source. The final window may be shorter.
type Fixed struct {
	Size    int
	Overlap int
}

var _ Splitter = (*Fixed)(nil)

// NewFixed validates the window geometry: Size must be positive and Overlap
// must be non-negative and smaller than Size, otherwise consecutive windows
// would never advance.
func NewFixed(size, overlap int) (*Fixed, error) {
	if size < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0,%d), got %d", size, overlap)
	}

	return &Fixed{Size: size, Overlap: overlap}, nil
}

// Split implements Splitter.
func (f *Fixed) Split(text string) []string {
	size := f.Size
	if size < 1 {
		size = DefaultSize
	}
	overlap := f.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	spans := wordSpans(text)
	if len(spans) == 0 {
		return nil
	}

	step := size - overlap
	out := make([]string, 0, (len(spans)+step-1)/step)
	for start := 0; start < len(spans); start += step {
		end := min(start+size, len(spans))
		out = append(out, text[spans[start].start:spans[end-1].end])
		if end == len(spans) {
			break
		}
	}

	return out
}

// wordSpan is a word's byte range within the source text.
type wordSpan struct {
	start, end int
}

// wordSpans locates maximal runs of non-space runes. Offsets are byte
// positions, always on rune boundaries.
func wordSpans(text string) []wordSpan {
	var spans []wordSpan
	start := -1

	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, wordSpan{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, wordSpan{start: start, end: len(text)})
	}

	return spans
}

// isClosing reports whether r is punctuation that may trail a sentence
// terminator, like the quote in `word."`.
func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}

// nextRune decodes the rune at text[i:]. It is a helper for scanners that
// walk byte offsets instead of ranging.
func nextRune(text string, i int) (rune, int) {
	return utf8.DecodeRuneInString(text[i:])
}
