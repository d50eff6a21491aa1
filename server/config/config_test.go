package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2025-06-15T12:30:00Z")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC), got)

	// datetime-local from the admin console has no seconds or zone.
	got, ok = ParseTime("2025-06-15T12:30")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC), got)

	got, ok = ParseTime("2025-06-15T12:30:45")
	assert.True(t, ok)
	assert.Equal(t, 45, got.Second())

	_, ok = ParseTime("")
	assert.False(t, ok)

	_, ok = ParseTime("soon")
	assert.False(t, ok)
}
