package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitorTransitions(t *testing.T) {
	m := NewMonitor(2, 5)
	assert.True(t, m.IsHealthy())

	m.Record(false)
	assert.True(t, m.IsHealthy())

	m.Record(false)
	assert.True(t, m.IsDegraded())
	assert.False(t, m.IsOffline())

	for i := 0; i < 3; i++ {
		m.Record(false)
	}
	assert.True(t, m.IsOffline())

	m.Record(true)
	assert.True(t, m.IsHealthy())
}
