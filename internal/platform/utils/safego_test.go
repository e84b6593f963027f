package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeGoRecoversPanic(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	var recovered error
	SafeGo(func() {
		panic("boom")
	}, func(err error) {
		recovered = err
		wg.Done()
	})
	wg.Wait()
	assert.Error(t, recovered)
}

func TestSafeGoRunsNormally(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	ran := false
	SafeGo(func() {
		defer wg.Done()
		ran = true
	}, nil)
	wg.Wait()
	assert.True(t, ran)
}
