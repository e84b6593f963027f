package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInfoSection(t *testing.T) {
	info := "# Persistence\r\nrdb_changes_since_last_save:42\r\nrdb_last_bgsave_status:ok\r\naof_enabled:1\r\n"
	parsed := parseInfoSection(info)
	assert.Equal(t, "42", parsed["rdb_changes_since_last_save"])
	assert.Equal(t, "ok", parsed["rdb_last_bgsave_status"])
	assert.Equal(t, "1", parsed["aof_enabled"])
}

func TestParseIntOrFallback(t *testing.T) {
	assert.Equal(t, int64(42), parseIntOr("42", -1))
	assert.Equal(t, int64(-1), parseIntOr("not-a-number", -1))
	assert.Equal(t, int64(-1), parseIntOr("", -1))
}

func TestDefaultSavePointsFormat(t *testing.T) {
	assert.Equal(t, "900 1 300 10 60 10000", DefaultSavePoints)
}
