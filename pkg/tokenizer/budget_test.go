package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
	assert.Greater(t, Estimate("Shared officer: Jane Doe (Director)"), 0)

	short := Estimate("Acme Ltd")
	long := Estimate(strings.Repeat("Acme Ltd ", 50))
	assert.Greater(t, long, short*20)
}

func TestBudget_Take(t *testing.T) {
	text := strings.Repeat("word ", 40) // 51 tokens
	b := NewBudget(120)

	assert.True(t, b.Take(text))
	assert.True(t, b.Take(text))
	assert.False(t, b.Take(text), "third piece must not fit")
	assert.Equal(t, 2*Estimate(text), b.Used())

	assert.True(t, b.Take("ok"), "small text still fits after a rejection")
	assert.Equal(t, 120-b.Used(), b.Remaining())
}

func TestBudget_ZeroLimit(t *testing.T) {
	b := NewBudget(0)
	assert.False(t, b.Take("anything"))
	assert.Equal(t, 0, b.Remaining())
}
