package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalshi-core/connectivity/internal/clockutil"
)

func testEngine() *Engine {
	return NewEngine(WithConfigs(map[Kind]Config{
		KindNetwork: {
			InitialDelay:       1 * time.Second,
			MaxDelay:           60 * time.Second,
			GrowthMultiplier:   2.0,
			JitterFraction:     0.1,
			DegradedMultiplier: 2.0,
			MaxAttempts:        5,
		},
	}))
}

func TestCalculateDelay_PreviewVsAdvance(t *testing.T) {
	e := testEngine()

	require.True(t, e.ShouldRetry("svc", KindNetwork))

	v1 := e.CalculateDelay("svc", KindNetwork, nil)
	assert.GreaterOrEqual(t, v1, 900*time.Millisecond)
	assert.LessOrEqual(t, v1, 1100*time.Millisecond)
	st, _ := e.state.snapshot("svc", KindNetwork)
	assert.Equal(t, 1, st.AttemptCount)

	preview := 2
	vPreview := e.CalculateDelay("svc", KindNetwork, &preview)
	assert.GreaterOrEqual(t, vPreview, 1800*time.Millisecond)
	assert.LessOrEqual(t, vPreview, 2200*time.Millisecond)
	st, _ = e.state.snapshot("svc", KindNetwork)
	assert.Equal(t, 1, st.AttemptCount, "preview must not advance state")

	v2 := e.CalculateDelay("svc", KindNetwork, nil)
	assert.GreaterOrEqual(t, v2, 1800*time.Millisecond)
	assert.LessOrEqual(t, v2, 2200*time.Millisecond)
	st, _ = e.state.snapshot("svc", KindNetwork)
	assert.Equal(t, 2, st.AttemptCount)
}

func TestDelayMonotonicity(t *testing.T) {
	e := testEngine()
	last := 0
	for i := 0; i < 5; i++ {
		e.CalculateDelay("svc", KindNetwork, nil)
		st, _ := e.state.snapshot("svc", KindNetwork)
		assert.Equal(t, last+1, st.AttemptCount)
		last = st.AttemptCount
	}
}

func TestDelayBound(t *testing.T) {
	e := NewEngine(WithConfigs(map[Kind]Config{
		KindGeneral: {
			InitialDelay:       1 * time.Second,
			MaxDelay:           5 * time.Second,
			GrowthMultiplier:   10.0,
			JitterFraction:     0.5,
			DegradedMultiplier: 2.0,
			MaxAttempts:        20,
		},
	}))
	for attempt := 1; attempt <= 10; attempt++ {
		a := attempt
		d := e.CalculateDelay("svc", KindGeneral, &a)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, time.Duration(float64(5*time.Second)*1.5))
	}
}

func TestShouldRetryExhaustsAtMaxAttempts(t *testing.T) {
	e := testEngine()
	for i := 0; i < 5; i++ {
		require.True(t, e.ShouldRetry("svc", KindNetwork))
		e.CalculateDelay("svc", KindNetwork, nil)
	}
	assert.False(t, e.ShouldRetry("svc", KindNetwork))
}

func TestResetIdempotence(t *testing.T) {
	e := testEngine()
	e.CalculateDelay("svc", KindNetwork, nil)
	e.Reset("svc", nil)
	st1, ok1 := e.state.snapshot("svc", KindNetwork)
	e.Reset("svc", nil)
	st2, ok2 := e.state.snapshot("svc", KindNetwork)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, st1, st2)
	assert.False(t, ok2)
}

func TestResetSingleKindKeepsOthers(t *testing.T) {
	e := testEngine()
	e.configs[KindGeneral] = e.configs[KindNetwork]
	e.CalculateDelay("svc", KindNetwork, nil)
	e.CalculateDelay("svc", KindGeneral, nil)

	kind := KindNetwork
	e.Reset("svc", &kind)

	_, ok := e.state.snapshot("svc", KindNetwork)
	assert.False(t, ok)
	_, ok = e.state.snapshot("svc", KindGeneral)
	assert.True(t, ok)
}

func TestCleanupOldState(t *testing.T) {
	clock := clockutil.NewFrozenClock(time.Now())
	e := NewEngine(WithClock(clock), WithConfigs(map[Kind]Config{
		KindNetwork: {InitialDelay: time.Second, MaxDelay: time.Minute, GrowthMultiplier: 2, JitterFraction: 0.1, DegradedMultiplier: 2, MaxAttempts: 10},
	}))
	e.CalculateDelay("stale-svc", KindNetwork, nil)
	clock.Advance(2 * time.Hour)
	e.CalculateDelay("fresh-svc", KindNetwork, nil)

	e.CleanupOldState(1 * time.Hour)

	_, ok := e.state.snapshot("stale-svc", KindNetwork)
	assert.False(t, ok)
	_, ok = e.state.snapshot("fresh-svc", KindNetwork)
	assert.True(t, ok)
}
