package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesTokens(t *testing.T) {
	l := New()

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("provider", 5, 0), "call %d should be allowed", i)
	}
	assert.False(t, l.Allow("provider", 5, 0), "bucket should be exhausted")
}

func TestAllowIndependentKeys(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("a", 1, 0))
	assert.False(t, l.Allow("a", 1, 0))
	assert.True(t, l.Allow("b", 1, 0))
}

func TestAllowRetunesOnBudgetChange(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("provider", 1, 0))
	assert.False(t, l.Allow("provider", 1, 0))

	// Session change shrinks capacity; surplus tokens are clamped away.
	assert.False(t, l.Allow("provider", 0.5, 0))
}

func TestReset(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("provider", 1, 0))
	assert.False(t, l.Allow("provider", 1, 0))

	l.Reset("provider")
	assert.True(t, l.Allow("provider", 1, 0))
}
