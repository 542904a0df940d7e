package lexical

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it into letter/digit runs. Everything
// else (punctuation, symbols, whitespace) separates tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
