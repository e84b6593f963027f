package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowRespectsBurst(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 2})
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestWaitUnblocksOnNextToken(t *testing.T) {
	l := New(Config{RequestsPerSecond: 100, Burst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, l.Wait(ctx))
	assert.NoError(t, l.Wait(ctx))
}

func TestResetRestoresBurstCapacity(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
	l.Reset()
	assert.True(t, l.Allow())
}

func TestDefaultConfigFillsZeroValues(t *testing.T) {
	l := New(Config{})
	assert.NotNil(t, l)
	assert.True(t, l.Allow())
}
