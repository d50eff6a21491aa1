package contest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"no bounds", time.Time{}, time.Time{}, true},
		{"inside window", before, after, true},
		{"before start", after, time.Time{}, false},
		{"after end", time.Time{}, before, false},
		{"only start, passed", before, time.Time{}, true},
		{"only end, not reached", time.Time{}, after, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsActive(now, tt.start, tt.end))
		})
	}
}

func TestIsFrozen(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.False(t, IsFrozen(now, time.Time{}), "unset freeze never freezes")
	assert.False(t, IsFrozen(now, now.Add(time.Minute)), "future freeze not yet in effect")
	assert.True(t, IsFrozen(now, now.Add(-time.Minute)))
}

func TestParseWaveConfig(t *testing.T) {
	w := ParseWaveConfig("[1,2,3]", "[1]")
	assert.Equal(t, []int{1, 2, 3}, w.Configured)
	assert.Equal(t, []int{1}, w.Active)
	assert.True(t, w.Enabled())

	w = ParseWaveConfig("[]", "[]")
	assert.False(t, w.Enabled())

	// Malformed values behave like empty ones.
	w = ParseWaveConfig("not json", "{bad}")
	assert.False(t, w.Enabled())
	assert.Empty(t, w.Active)
}

func TestChallengeVisible(t *testing.T) {
	off := ParseWaveConfig("[]", "[]")
	on := ParseWaveConfig("[0,1,2]", "[1]")

	// Hidden wins over everything.
	assert.False(t, ChallengeVisible(true, 1, on))
	assert.False(t, ChallengeVisible(true, 0, off))

	// Waves off: only is_hidden governs.
	assert.True(t, ChallengeVisible(false, 0, off))
	assert.True(t, ChallengeVisible(false, 99, off))

	// Waves on: strict allow-list.
	assert.True(t, ChallengeVisible(false, 1, on))
	assert.False(t, ChallengeVisible(false, 2, on))
	assert.False(t, ChallengeVisible(false, 0, on), "wave 0 needs explicit activation")

	zeroActive := ParseWaveConfig("[0,1]", "[0]")
	assert.True(t, ChallengeVisible(false, 0, zeroActive))
}

func TestCanAccessChallenges(t *testing.T) {
	solo := Viewer{UserID: 1}
	teamed := Viewer{UserID: 1, TeamID: 5}
	admin := Viewer{UserID: 2, IsAdmin: true}

	assert.True(t, CanAccessChallenges(solo, "both"))
	assert.True(t, CanAccessChallenges(solo, "individual"))
	assert.False(t, CanAccessChallenges(solo, "team"))
	assert.True(t, CanAccessChallenges(teamed, "team"))
	assert.True(t, CanAccessChallenges(admin, "team"), "admins bypass the team gate")
}
