package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecuteSuccessStaysClosed(t *testing.T) {
	cb := New(DefaultConfig())
	err := cb.Execute(context.Background(), func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecuteOpensAfterMaxFailures(t *testing.T) {
	cb := New(Config{MaxFailures: 3, Timeout: time.Second})
	testErr := errors.New("failed")
	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), func() error { return testErr })
	}
	assert.Equal(t, StateOpen, cb.State())
}

func TestRejectsWhenOpen(t *testing.T) {
	cb := New(Config{MaxFailures: 1, Timeout: time.Hour})
	cb.Execute(context.Background(), func() error { return errors.New("fail") })

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestHalfOpenRecoversAfterTimeout(t *testing.T) {
	cb := New(Config{MaxFailures: 1, Timeout: 10 * time.Millisecond, HalfOpenMax: 2})
	cb.Execute(context.Background(), func() error { return errors.New("fail") })

	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 2; i++ {
		cb.Execute(context.Background(), func() error { return nil })
	}
	assert.Equal(t, StateClosed, cb.State())
}
