package middleware

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestLimiter(maxRequests int, window time.Duration) (*SlidingWindowLimiter, *time.Time) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewSlidingWindowLimiter(maxRequests, window, log)
	limiter.SetClock(func() time.Time { return now })
	return limiter, &now
}

func TestAllowUpToCap(t *testing.T) {
	limiter, _ := newTestLimiter(6, time.Minute)

	for i := 0; i < 6; i++ {
		assert.True(t, limiter.Allow("sender"), "request %d should be admitted", i+1)
	}
	assert.False(t, limiter.Allow("sender"), "7th request within the window should be denied")
	assert.False(t, limiter.Allow("sender"))
}

func TestWindowSlides(t *testing.T) {
	limiter, now := newTestLimiter(6, time.Minute)

	for i := 0; i < 6; i++ {
		assert.True(t, limiter.Allow("sender"))
		*now = now.Add(5 * time.Second)
	}
	assert.False(t, limiter.Allow("sender"))

	// First admission was 30s ago; once it ages past the window the slot
	// frees up.
	*now = now.Add(31 * time.Second)
	assert.True(t, limiter.Allow("sender"))
}

func TestDenialDoesNotConsumeBudget(t *testing.T) {
	limiter, now := newTestLimiter(2, time.Minute)

	assert.True(t, limiter.Allow("sender"))
	assert.True(t, limiter.Allow("sender"))
	assert.False(t, limiter.Allow("sender"))

	// The denied check recorded nothing, so aging out the two admissions
	// restores exactly two slots.
	*now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("sender"))
	assert.True(t, limiter.Allow("sender"))
	assert.False(t, limiter.Allow("sender"))
}

func TestSendersAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
}

func TestReset(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))

	limiter.Reset("a")
	assert.True(t, limiter.Allow("a"))
}

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	limiter := noopLimiter{}
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow("sender"))
	}
}
