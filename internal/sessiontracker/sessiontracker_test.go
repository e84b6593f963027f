package sessiontracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalshi-core/connectivity/internal/clockutil"
)

func TestTrackAndRelease(t *testing.T) {
	clock := clockutil.NewFrozenClock(time.Now())
	tr := New(clock)

	release := tr.Track("websocket")
	require.Equal(t, 1, tr.Count())

	entries := tr.Outstanding()
	require.Len(t, entries, 1)
	assert.Equal(t, "websocket", entries[0].Kind)
	assert.NotEmpty(t, entries[0].ID)

	release()
	assert.Equal(t, 0, tr.Count())

	release()
	assert.Equal(t, 0, tr.Count())
}

func TestOlderThan(t *testing.T) {
	clock := clockutil.NewFrozenClock(time.Now())
	tr := New(clock)

	tr.Track("scraper")
	clock.Advance(10 * time.Minute)
	tr.Track("rest")

	old := tr.OlderThan(5 * time.Minute)
	require.Len(t, old, 1)
	assert.Equal(t, "scraper", old[0].Kind)
}

func TestOutstandingOrderedOldestFirst(t *testing.T) {
	clock := clockutil.NewFrozenClock(time.Now())
	tr := New(clock)

	tr.Track("a")
	clock.Advance(time.Second)
	tr.Track("b")

	entries := tr.Outstanding()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Kind)
	assert.Equal(t, "b", entries[1].Kind)
}
