package main

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLoginLimiter(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 31, 12, 0, 0, 0, time.UTC))
	limiter := NewMemoryLoginLimiter(clock, 5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "attempt %d", i)
		limiter.Fail("10.0.0.1")
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Other clients are unaffected.
	assert.True(t, limiter.Allow("10.0.0.2"))

	// Old failures fall out of the window.
	clock.Advance(15*time.Minute + time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestMemoryLoginLimiter_Reset(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 31, 12, 0, 0, 0, time.UTC))
	limiter := NewMemoryLoginLimiter(clock, 5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		limiter.Fail("10.0.0.1")
	}
	assert.False(t, limiter.Allow("10.0.0.1"))
	limiter.Reset("10.0.0.1")
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestTokenRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 31, 12, 0, 0, 0, time.UTC))
	app := &App{JWTSecret: []byte("test-secret"), Clock: clock}

	token, err := app.issueToken("user-123")
	require.NoError(t, err)

	sub, err := app.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)

	// Wrong secret is rejected.
	other := &App{JWTSecret: []byte("other-secret"), Clock: clock}
	_, err = other.parseToken(token)
	assert.Error(t, err)

	// Tokens expire after 24h.
	clock.Advance(25 * time.Hour)
	_, err = app.parseToken(token)
	assert.Error(t, err)
}
