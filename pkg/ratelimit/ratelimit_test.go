package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowLimiter(t *testing.T) {
	t.Run("allows up to the limit", func(t *testing.T) {
		l := NewSlidingWindowLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, l.Allow("k"), "request %d should pass", i+1)
		}
		assert.False(t, l.Allow("k"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewSlidingWindowLimiter(1, time.Minute)

		assert.True(t, l.Allow("a"))
		assert.False(t, l.Allow("a"))
		assert.True(t, l.Allow("b"))
	})

	t.Run("window slides", func(t *testing.T) {
		l := NewSlidingWindowLimiter(1, 20*time.Millisecond)

		assert.True(t, l.Allow("k"))
		assert.False(t, l.Allow("k"))

		time.Sleep(30 * time.Millisecond)
		assert.True(t, l.Allow("k"))
	})

	t.Run("reset clears a key", func(t *testing.T) {
		l := NewSlidingWindowLimiter(1, time.Minute)

		assert.True(t, l.Allow("k"))
		assert.False(t, l.Allow("k"))

		l.Reset("k")
		assert.True(t, l.Allow("k"))
	})
}

func TestIPLimiter(t *testing.T) {
	l := NewIPLimiter(2)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
}
