package contest

import (
	"database/sql"
	"encoding/json"
	"time"

	"flagforge/server/config"
)

// Viewer is the identity a request acts as. UserID 0 means anonymous,
// TeamID 0 means no team.
type Viewer struct {
	UserID  int64
	TeamID  int64
	IsAdmin bool
}

// IsActive reports whether the competition window contains now. An unset
// bound (zero time) does not constrain.
func IsActive(now, start, end time.Time) bool {
	if !start.IsZero() && now.Before(start) {
		return false
	}
	if !end.IsZero() && now.After(end) {
		return false
	}
	return true
}

// IsFrozen reports whether the scoreboard freeze is in effect. Freezing is
// a display concern only, score accrual continues.
func IsFrozen(now, freeze time.Time) bool {
	return !freeze.IsZero() && now.After(freeze)
}

// WaveConfig is the release-wave state. When no waves are configured the
// wave mechanism is off and only is_hidden governs visibility.
type WaveConfig struct {
	Configured []int
	Active     []int
}

// ParseWaveConfig decodes the configured_waves / active_waves JSON arrays.
// Malformed values are treated as empty.
func ParseWaveConfig(configured, active string) WaveConfig {
	var w WaveConfig
	if err := json.Unmarshal([]byte(configured), &w.Configured); err != nil {
		w.Configured = nil
	}
	if err := json.Unmarshal([]byte(active), &w.Active); err != nil {
		w.Active = nil
	}
	return w
}

// Enabled reports whether wave gating is on.
func (w WaveConfig) Enabled() bool {
	return len(w.Configured) > 0
}

// WaveActive reports whether a wave number has been released. With gating
// on this is a strict allow-list, so wave 0 is visible only when 0 itself
// is in the active set.
func (w WaveConfig) WaveActive(wave int) bool {
	for _, a := range w.Active {
		if a == wave {
			return true
		}
	}
	return false
}

// ChallengeVisible is the single visibility rule for players. Hidden
// challenges are never visible; with wave gating on, the wave must also be
// released.
func ChallengeVisible(isHidden bool, wave int, w WaveConfig) bool {
	if isHidden {
		return false
	}
	if !w.Enabled() {
		return true
	}
	return w.WaveActive(wave)
}

// CanAccessChallenges enforces the play-mode gate: in team mode a player
// must belong to a team before the catalog opens. Admins bypass.
func CanAccessChallenges(v Viewer, playMode string) bool {
	if v.IsAdmin {
		return true
	}
	if playMode == "team" && v.TeamID == 0 {
		return false
	}
	return true
}

// LoadWindow reads the competition window from the config store.
func LoadWindow(db *sql.DB) (start, end time.Time) {
	return config.Window(db)
}

// LoadFreeze reads the freeze time from the config store.
func LoadFreeze(db *sql.DB) (time.Time, bool) {
	return config.FreezeTime(db)
}

// LoadWaveConfig reads and parses the wave state once, at the boundary.
func LoadWaveConfig(db *sql.DB) WaveConfig {
	return ParseWaveConfig(
		config.Get(db, "configured_waves", "[]"),
		config.Get(db, "active_waves", "[]"),
	)
}
