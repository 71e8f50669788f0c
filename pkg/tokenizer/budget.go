// Package tokenizer estimates how much of a language model's context a piece
// of text uses.
package tokenizer

import "strings"

// Estimate returns a rough token count for text: the mean of a word-based
// guess (about 1.3 tokens per word) and a byte-based one (about 4 bytes per
// token). JSON punctuation makes the byte-based guess dominate.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	words := float64(len(strings.Fields(text))) * 1.3
	bytes := float64(len(text)) / 4
	return int((words + bytes) / 2)
}

// Budget hands out a fixed number of tokens to successive pieces of text.
type Budget struct {
	limit int
	used  int
}

// NewBudget returns a Budget of limit tokens. A limit <= 0 admits nothing.
func NewBudget(limit int) *Budget {
	return &Budget{limit: limit}
}

// Take charges text against the budget and reports whether it fit. Text that
// does not fit is not charged, so a later, smaller piece may still fit.
func (b *Budget) Take(text string) bool {
	n := Estimate(text)
	if b.used+n > b.limit {
		return false
	}
	b.used += n
	return true
}

// Used returns the tokens charged so far.
func (b *Budget) Used() int { return b.used }

// Remaining returns the tokens still available.
func (b *Budget) Remaining() int {
	if b.used >= b.limit {
		return 0
	}
	return b.limit - b.used
}
