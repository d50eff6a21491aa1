package main

import (
	"database/sql"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Schema is created on startup so a fresh database is usable without a
// separate migration step. Statements are idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGSERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		captain_id BIGINT,
		invite_code TEXT UNIQUE NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		is_banned BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		team_id BIGINT REFERENCES teams(id) ON DELETE SET NULL,
		score INTEGER NOT NULL DEFAULT 0,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		is_banned BOOLEAN NOT NULL DEFAULT FALSE,
		is_verified BOOLEAN NOT NULL DEFAULT TRUE,
		play_mode TEXT NOT NULL DEFAULT 'individual',
		bio TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		github TEXT NOT NULL DEFAULT '',
		twitter TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS challenges (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		points INTEGER NOT NULL,
		flag TEXT NOT NULL,
		file_url TEXT,
		link_url TEXT,
		extra_files TEXT NOT NULL DEFAULT '[]',
		extra_links TEXT NOT NULL DEFAULT '[]',
		hint TEXT,
		hint_cost INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 0,
		wave INTEGER NOT NULL DEFAULT 0,
		is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		show_flag BOOLEAN NOT NULL DEFAULT FALSE,
		solves INTEGER NOT NULL DEFAULT 0,
		author TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		team_id BIGINT,
		challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		flag_submitted TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL,
		ip_address TEXT,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions (user_id, challenge_id)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_team ON submissions (team_id, challenge_id)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_correct ON submissions (challenge_id) WHERE is_correct`,
	`CREATE TABLE IF NOT EXISTS challenge_attempts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_attempt TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, challenge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS hint_unlocks (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, challenge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS challenge_ratings (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating >= 1 AND rating <= 5),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, challenge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Competition settings live in the config table so admins can change them
// at runtime. Only missing keys are seeded.
var defaultConfig = map[string]string{
	"ctf_name":                     "Capture The Flag",
	"ctf_start":                    "",
	"ctf_end":                      "",
	"score_freeze_time":            "",
	"registration_open":            "1",
	"require_login_challenges":     "1",
	"hide_scores_public":           "0",
	"scoreboard_visible":           "1",
	"configured_waves":             "[]",
	"active_waves":                 "[]",
	"play_mode":                    "both",
	"max_team_members":             "4",
	"default_max_attempts":         "0",
	"max_flag_attempts_per_minute": "10",
	"categories":                   "Web,Crypto,Forensics,Pwn,Reversing,Misc,OSINT",
	"flag_format":                  "flag{...}",
}

func ensureSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	for key, value := range defaultConfig {
		if _, err := db.Exec(`INSERT INTO config (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`, key, value); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin creates or updates the administrator account from the
// environment. Without ADMIN_USERNAME/ADMIN_PASSWORD the step is skipped.
func ensureAdmin(db *sql.DB) error {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	email := os.Getenv("ADMIN_EMAIL")

	if username == "" || password == "" {
		return nil
	}
	if email == "" {
		email = username + "@ctf.local"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	var existingID int64
	err = db.QueryRow(`SELECT id FROM users WHERE username = $1`, username).Scan(&existingID)
	if err == sql.ErrNoRows {
		var newID int64
		err = db.QueryRow(`INSERT INTO users (username, email, password_hash, is_admin, is_verified)
			VALUES ($1, $2, $3, TRUE, TRUE) RETURNING id`,
			username, email, string(hash)).Scan(&newID)
		if err != nil {
			return err
		}
		log.Printf("[ensureAdmin] created admin user %s (id=%d)", username, newID)
		return nil
	}
	if err != nil {
		return err
	}

	_, err = db.Exec(`UPDATE users SET password_hash = $1, is_admin = TRUE, is_banned = FALSE WHERE id = $2`,
		string(hash), existingID)
	if err != nil {
		return err
	}
	log.Printf("[ensureAdmin] updated admin user %s (id=%d)", username, existingID)
	return nil
}
