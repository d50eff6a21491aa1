package config

import (
	"database/sql"
	"log"
	"strconv"
	"time"
)

// Competition settings live in the config key/value table so admins can
// change them without a restart. Process-level settings (DATABASE_URL,
// JWT_SECRET, ...) stay in the environment.

// Get returns the value for key, or def when the key is missing.
func Get(db *sql.DB, key, def string) string {
	var value string
	err := db.QueryRow(`SELECT value FROM config WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return def
	}
	if err != nil {
		log.Printf("config get %s: %v", key, err)
		return def
	}
	return value
}

// GetInt returns the integer value for key, or def when missing or invalid.
func GetInt(db *sql.DB, key string, def int) int {
	raw := Get(db, key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// GetBool treats "1" as true, everything else as false.
func GetBool(db *sql.DB, key string, def bool) bool {
	raw := Get(db, key, "")
	if raw == "" {
		return def
	}
	return raw == "1"
}

// GetTime parses a stored timestamp. The second return is false when the
// key is unset or unparseable.
func GetTime(db *sql.DB, key string) (time.Time, bool) {
	return ParseTime(Get(db, key, ""))
}

// ParseTime accepts RFC3339 and the datetime-local format used by the
// admin console ("2006-01-02T15:04").
func ParseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Set upserts a single key.
func Set(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT INTO config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

// All returns every config row.
func All(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

// Window returns the competition start and end times. Zero values mean the
// bound is unset.
func Window(db *sql.DB) (start, end time.Time) {
	start, _ = GetTime(db, "ctf_start")
	end, _ = GetTime(db, "ctf_end")
	return start, end
}

// FreezeTime returns the scoreboard freeze time, if configured.
func FreezeTime(db *sql.DB) (time.Time, bool) {
	return GetTime(db, "score_freeze_time")
}
