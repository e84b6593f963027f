package singleton

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndReleaseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l, err := New("test-service", dir)
	require.NoError(t, err)

	require.NoError(t, l.Acquire())
	assert.FileExists(t, filepath.Join(dir, "test-service.lock"))

	l.Release()
	_, err = os.Stat(filepath.Join(dir, "test-service.lock"))
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireFailsWhenAlreadyHeld(t *testing.T) {
	dir := t.TempDir()

	first, err := New("test-service", dir)
	require.NoError(t, err)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second, err := New("test-service", dir)
	require.NoError(t, err)
	err = second.Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already")
}

func TestReleaseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l, err := New("test-service", dir)
	require.NoError(t, err)
	require.NoError(t, l.Acquire())

	l.Release()
	l.Release()
}

func TestServiceRuntimeDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("SERVICE_RUNTIME_DIR", dir)
	defer os.Unsetenv("SERVICE_RUNTIME_DIR")

	l, err := New("override-service", "/should/not/be/used")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "override-service.lock"), l.lockPath)
}
