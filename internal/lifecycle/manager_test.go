package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalshi-core/connectivity/internal/backoff"
	"github.com/kalshi-core/connectivity/internal/health"
)

type fakeProtocol struct {
	establishFail int32
	healthy       atomic.Bool
	cleanedUp     atomic.Bool
}

func (f *fakeProtocol) Establish(ctx context.Context) error {
	if atomic.AddInt32(&f.establishFail, -1) >= 0 {
		return assertErr
	}
	f.healthy.Store(true)
	return nil
}

func (f *fakeProtocol) CheckHealth(ctx context.Context) health.Result {
	if f.healthy.Load() {
		return health.Result{Healthy: true}
	}
	return health.Result{Healthy: false, Error: "down"}
}

func (f *fakeProtocol) Cleanup(ctx context.Context) error {
	f.cleanedUp.Store(true)
	return nil
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

var assertErr = simpleErr("establish failed")

func testConfig() Config {
	return Config{HealthCheckInterval: 20 * time.Millisecond, MaxConsecutiveFailures: 2, StopGracePeriod: time.Second}
}

func TestStartSucceedsImmediately(t *testing.T) {
	proto := &fakeProtocol{}
	engine := backoff.NewEngine()
	m := New("svc", proto, testConfig(), engine, nil)

	ok := m.Start(context.Background())
	require.True(t, ok)
	assert.Equal(t, Connected, m.State())

	m.Stop(context.Background())
	<-m.Done()
	assert.True(t, proto.cleanedUp.Load())
}

func TestStartRetriesThenSucceeds(t *testing.T) {
	proto := &fakeProtocol{establishFail: 2}
	engine := backoff.NewEngine(backoff.WithConfigs(map[backoff.Kind]backoff.Config{
		backoff.KindNetwork: {InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, GrowthMultiplier: 1.5, JitterFraction: 0.1, DegradedMultiplier: 1, MaxAttempts: 10},
	}))
	m := New("svc", proto, testConfig(), engine, nil)

	ok := m.Start(context.Background())
	require.True(t, ok)
	assert.Equal(t, Connected, m.State())
	m.Stop(context.Background())
	<-m.Done()
}

func TestStartFailsAfterMaxAttempts(t *testing.T) {
	proto := &fakeProtocol{establishFail: 1000}
	engine := backoff.NewEngine(backoff.WithConfigs(map[backoff.Kind]backoff.Config{
		backoff.KindNetwork: {InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, GrowthMultiplier: 1, JitterFraction: 0, DegradedMultiplier: 1, MaxAttempts: 3},
	}))
	m := New("svc", proto, testConfig(), engine, nil)

	ok := m.Start(context.Background())
	assert.False(t, ok)
	assert.Equal(t, Failed, m.State())
}

func TestTransitionsAreBroadcast(t *testing.T) {
	proto := &fakeProtocol{}
	engine := backoff.NewEngine()
	m := New("svc", proto, testConfig(), engine, nil)
	ch := m.Subscribe()

	require.True(t, m.Start(context.Background()))
	m.Stop(context.Background())
	<-m.Done()

	var seen []State
	for {
		select {
		case t := <-ch:
			seen = append(seen, t.To)
		default:
			goto done
		}
	}
done:
	assert.Contains(t, seen, Connecting)
	assert.Contains(t, seen, Connected)
	assert.Contains(t, seen, ShuttingDown)
}
