package logging

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOrDefault(t *testing.T) {
	os.Unsetenv("LOGGING_TEST_VAR")
	assert.Equal(t, "fallback", envOrDefault("LOGGING_TEST_VAR", "fallback"))

	os.Setenv("LOGGING_TEST_VAR", "set")
	defer os.Unsetenv("LOGGING_TEST_VAR")
	assert.Equal(t, "set", envOrDefault("LOGGING_TEST_VAR", "fallback"))
}

func TestIsManagedByMonitor(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes"} {
		os.Setenv("MANAGED_BY_MONITOR", v)
		assert.True(t, isManagedByMonitor(), "value %q should be managed", v)
	}
	os.Setenv("MANAGED_BY_MONITOR", "0")
	assert.False(t, isManagedByMonitor())
	os.Unsetenv("MANAGED_BY_MONITOR")
	assert.False(t, isManagedByMonitor())
}

func TestNewDefaultsToInfoLevelOnBadLevel(t *testing.T) {
	l := New(Config{Level: "not-a-level", Output: "stdout"})
	assert.Equal(t, "info", l.GetLevel().String())
}

func TestTraceIDRoundTripsThroughContext(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background()))

	id := NewTraceID()
	assert.NotEmpty(t, id)
	ctx := WithTraceID(context.Background(), id)
	assert.Equal(t, id, TraceIDFromContext(ctx))
}

func TestWithTraceFieldsAttachesTraceID(t *testing.T) {
	l := New(Config{Output: "stdout"})
	ctx := WithTraceID(context.Background(), "abc-123")
	entry := l.WithTraceFields(ctx)
	assert.Equal(t, "abc-123", entry.Data["trace_id"])

	bare := l.WithTraceFields(context.Background())
	_, ok := bare.Data["trace_id"]
	assert.False(t, ok)
}
