package main

import (
	"database/sql"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"flagforge/server/audit"
	"flagforge/server/config"
	"flagforge/server/metrics"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// handleRegister creates an account when registration is open.
func handleRegister(c *gin.Context, db *sql.DB, secret []byte) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	if !config.GetBool(db, "registration_open", true) {
		c.JSON(http.StatusForbidden, gin.H{"error": "REGISTRATION_CLOSED", "message": "registration is closed"})
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_USERNAME", "message": "username must be 3-20 characters (letters, digits, - and _)"})
		return
	}
	if !emailPattern.MatchString(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_EMAIL", "message": "email address is not valid"})
		return
	}
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "WEAK_PASSWORD", "message": "password must be at least 8 characters"})
		return
	}

	var taken bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		req.Username, req.Email).Scan(&taken)
	if err != nil {
		log.Printf("check registration error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "ALREADY_REGISTERED", "message": "username or email is already in use"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("hash password error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	var id int64
	err = db.QueryRow(`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		req.Username, req.Email, string(hash)).Scan(&id)
	if err != nil {
		log.Printf("insert user error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	metrics.Registrations.Inc()
	audit.WriteLog(db, &id, audit.ActionRegister, req.Username, c.ClientIP())

	token, err := generateJWT(id, req.Username, false, secret)
	if err != nil {
		log.Printf("generate token error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  User{ID: id, Username: req.Username, Email: req.Email, PlayMode: "individual"},
	})
}

// handleLogin authenticates by username or email.
func handleLogin(c *gin.Context, db *sql.DB, secret []byte) {
	loginUser(c, db, secret, false)
}

// handleAdminLogin is the console login; non-admin accounts are rejected
// with the same error as a wrong password.
func handleAdminLogin(c *gin.Context, db *sql.DB, secret []byte) {
	loginUser(c, db, secret, true)
}

func loginUser(c *gin.Context, db *sql.DB, secret []byte, requireAdmin bool) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	var (
		u            User
		passwordHash string
		isBanned     bool
		teamID       sql.NullInt64
	)
	err := db.QueryRow(`
		SELECT id, username, email, password_hash, is_admin, is_banned, team_id, score, play_mode
		FROM users WHERE username = $1 OR email = $1`, req.Login).Scan(
		&u.ID, &u.Username, &u.Email, &passwordHash, &u.IsAdmin, &isBanned, &teamID, &u.Score, &u.PlayMode)

	clientIP := c.ClientIP()

	if err == sql.ErrNoRows {
		audit.WriteLog(db, nil, audit.ActionLoginFailed, "unknown login "+req.Login, clientIP)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_CREDENTIALS"})
		return
	}
	if err != nil {
		log.Printf("query user error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		audit.WriteLog(db, &u.ID, audit.ActionLoginFailed, "wrong password for "+u.Username, clientIP)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_CREDENTIALS"})
		return
	}
	if isBanned {
		audit.WriteLog(db, &u.ID, audit.ActionLoginFailed, "banned account "+u.Username, clientIP)
		c.JSON(http.StatusForbidden, gin.H{"error": "BANNED", "message": "account is banned"})
		return
	}
	if requireAdmin && !u.IsAdmin {
		audit.WriteLog(db, &u.ID, audit.ActionLoginFailed, "non-admin console login "+u.Username, clientIP)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_CREDENTIALS"})
		return
	}

	if teamID.Valid {
		u.TeamID = &teamID.Int64
	}

	token, err := generateJWT(u.ID, u.Username, u.IsAdmin, secret)
	if err != nil {
		log.Printf("generate token error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	audit.WriteLog(db, &u.ID, audit.ActionLogin, u.Username, clientIP)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

// handleMe returns the caller's current account state.
func handleMe(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")

	var (
		u      User
		teamID sql.NullInt64
	)
	err := db.QueryRow(`
		SELECT id, username, email, is_admin, team_id, score, play_mode
		FROM users WHERE id = $1`, userID).Scan(
		&u.ID, &u.Username, &u.Email, &u.IsAdmin, &teamID, &u.Score, &u.PlayMode)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if teamID.Valid {
		u.TeamID = &teamID.Int64
	}

	c.JSON(http.StatusOK, gin.H{"user": u})
}

// handleLogout exists for the client's sake; tokens are stateless and
// simply expire.
func handleLogout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// handleDeleteAccount removes the caller's account after a password
// confirmation. The personal score comes off the team, and an empty team
// left behind is deleted.
func handleDeleteAccount(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")

	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	var (
		passwordHash string
		score        int
		teamID       sql.NullInt64
		isAdmin      bool
	)
	err := db.QueryRow(`SELECT password_hash, score, team_id, is_admin FROM users WHERE id = $1`,
		userID).Scan(&passwordHash, &score, &teamID, &isAdmin)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_CREDENTIALS", "message": "password is wrong"})
		return
	}
	if isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "ADMIN_ACCOUNT", "message": "admin accounts cannot self-delete"})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin delete account tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	if teamID.Valid {
		if _, err := tx.Exec(`UPDATE teams SET score = score - $1 WHERE id = $2`, score, teamID.Int64); err != nil {
			log.Printf("remove score from team error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		if _, err := tx.Exec(`
			UPDATE teams SET captain_id = (
				SELECT id FROM users WHERE team_id = $1 AND id != $2 ORDER BY created_at ASC, id ASC LIMIT 1
			) WHERE id = $1 AND captain_id = $2`, teamID.Int64, userID); err != nil {
			log.Printf("transfer captain error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}

	for _, stmt := range []string{
		`DELETE FROM submissions WHERE user_id = $1`,
		`DELETE FROM challenge_attempts WHERE user_id = $1`,
		`DELETE FROM hint_unlocks WHERE user_id = $1`,
		`DELETE FROM challenge_ratings WHERE user_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	} {
		if _, err := tx.Exec(stmt, userID); err != nil {
			log.Printf("delete account rows error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}

	if teamID.Valid {
		var remaining int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE team_id = $1`, teamID.Int64).Scan(&remaining); err == nil && remaining == 0 {
			tx.Exec(`DELETE FROM teams WHERE id = $1`, teamID.Int64)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("commit delete account error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	audit.WriteLog(db, nil, audit.ActionDeleteAccount, "user "+c.GetString("username"), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

// generateJWT issues a 24h HS256 token.
func generateJWT(id int64, username string, isAdmin bool, secret []byte) (string, error) {
	role := "user"
	if isAdmin {
		role = "admin"
	}
	claims := jwt.MapClaims{
		"sub":      id,
		"username": username,
		"role":     role,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
