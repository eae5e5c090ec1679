package muikit

import (
	"strings"
	"unicode/utf8"
)

// TokenCounter estimates token count for a string.
// Callers can plug in an exact tokenizer (e.g. tiktoken); LengthEstimator is the crude default.
type TokenCounter interface {
	Count(text string) (int, error)
}

// LengthEstimator estimates tokens as runes/CharsPerToken, never less than 1.
// It is approximate and must not be used for billing. Zero value uses 4 chars per token.
type LengthEstimator struct {
	CharsPerToken int
}

// Count returns max(1, rune_count / CharsPerToken). If CharsPerToken <= 0, uses 4.
func (e *LengthEstimator) Count(text string) (int, error) {
	cpt := e.CharsPerToken
	if cpt <= 0 {
		cpt = 4
	}
	return max(1, utf8.RuneCountInString(text)/cpt), nil
}

// WordCounter counts whitespace-separated words.
type WordCounter struct{}

// Count returns the number of fields in text.
func (WordCounter) Count(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// FallbackCounter uses Primary and falls back to Fallback on any error.
// Count never returns an error: if both fail (or Primary is nil) the word count is used.
type FallbackCounter struct {
	Primary  TokenCounter
	Fallback TokenCounter
}

// Count implements TokenCounter.
func (c *FallbackCounter) Count(text string) (int, error) {
	if c.Primary != nil {
		if n, err := c.Primary.Count(text); err == nil {
			return n, nil
		}
	}
	if c.Fallback != nil {
		if n, err := c.Fallback.Count(text); err == nil {
			return n, nil
		}
	}
	return WordCounter{}.Count(text)
}

// CountOrZero calls tc.Count and returns 0 on error.
func CountOrZero(tc TokenCounter, text string) int {
	n, err := tc.Count(text)
	if err != nil {
		return 0
	}
	return n
}
