package distlock

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalshi-core/connectivity/internal/platform/xerrors"
)

func TestNewDefaultsTimeout(t *testing.T) {
	l := New(nil, "some:key", 0)
	assert.Equal(t, 30*time.Second, l.timeout)
	assert.Equal(t, "some:key", l.key)
}

func TestNewLockValueIsUniquePerInstance(t *testing.T) {
	a := New(nil, "k", time.Second)
	b := New(nil, "k", time.Second)
	assert.NotEqual(t, a.value, b.value)
}

func TestTradeAndLiquidationKeyConventions(t *testing.T) {
	trade := Trade(nil, "KXBTC-25")
	assert.Equal(t, "trade_lock:KXBTC-25", trade.key)
	assert.Equal(t, 30*time.Second, trade.timeout)

	liq := Liquidation(nil, "KXBTC-25")
	assert.Equal(t, "liquidation_lock:KXBTC-25", liq.key)
	assert.Equal(t, 60*time.Second, liq.timeout)
}

func TestAcquireWithoutClientIsLockUnavailable(t *testing.T) {
	l := New(nil, "k", time.Second)
	err := l.Acquire(context.Background())
	require.Error(t, err)
	kind, ok := xerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindLockUnavailable, kind)
}

func TestReleaseWithoutClientIsLockUnavailable(t *testing.T) {
	l := New(nil, "k", time.Second)
	l.rdb = nil
	err := l.Release(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "redis client is required"))
}

func TestReleaseNotAcquiredIsLockUnavailable(t *testing.T) {
	// A client is set so Release gets past the missing-client check; the
	// not-acquired check returns before any command is sent to it.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	l := New(rdb, "k", time.Second)
	l.acquired = false
	err := l.Release(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not acquired")
}
