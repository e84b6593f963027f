package appconfig

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvDurationSecondsParsesFloatSeconds(t *testing.T) {
	os.Setenv("APPCONFIG_TEST_DURATION", "1.5")
	defer os.Unsetenv("APPCONFIG_TEST_DURATION")
	assert.Equal(t, 1500*time.Millisecond, EnvDurationSeconds("APPCONFIG_TEST_DURATION", 0))
}

func TestEnvDurationSecondsFallsBackOnInvalid(t *testing.T) {
	os.Setenv("APPCONFIG_TEST_DURATION", "not-a-number")
	defer os.Unsetenv("APPCONFIG_TEST_DURATION")
	assert.Equal(t, 5*time.Second, EnvDurationSeconds("APPCONFIG_TEST_DURATION", 5*time.Second))
}

func TestEnvBoolOrDefaultAcceptsVariants(t *testing.T) {
	for _, v := range []string{"true", "1", "yes", "y", "TRUE"} {
		os.Setenv("APPCONFIG_TEST_BOOL", v)
		assert.True(t, EnvBoolOrDefault("APPCONFIG_TEST_BOOL", false), "value %q", v)
	}
	for _, v := range []string{"false", "0", "no", "n"} {
		os.Setenv("APPCONFIG_TEST_BOOL", v)
		assert.False(t, EnvBoolOrDefault("APPCONFIG_TEST_BOOL", true), "value %q", v)
	}
	os.Unsetenv("APPCONFIG_TEST_BOOL")
}

func TestRequireEnvErrorsWhenUnset(t *testing.T) {
	os.Unsetenv("APPCONFIG_TEST_REQUIRED")
	_, err := RequireEnv("APPCONFIG_TEST_REQUIRED")
	require.Error(t, err)
}

func TestFromEnvAppliesDefaults(t *testing.T) {
	os.Unsetenv("REDIS_HOST")
	os.Unsetenv("REDIS_PORT")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, 5, cfg.MaxConsecutiveFailures)
}
