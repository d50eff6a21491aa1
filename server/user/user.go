package user

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"flagforge/server/config"
)

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Bio     string `json:"bio"`
	Country string `json:"country"`
	Website string `json:"website"`
	GitHub  string `json:"github"`
	Twitter string `json:"twitter"`
}

// PlayModeRequest switches between individual and team play.
type PlayModeRequest struct {
	PlayMode string `json:"playMode" binding:"required"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// HandleListUsers is the public player directory, paginated by score.
func HandleListUsers(c *gin.Context, db *sql.DB) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE NOT is_hidden AND NOT is_admin`).Scan(&total); err != nil {
		log.Printf("count users error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	rows, err := db.Query(`
		SELECT u.id, u.username, u.score, u.country, u.is_banned, t.name,
			(SELECT COUNT(*) FROM submissions s WHERE s.user_id = u.id AND s.is_correct) AS solves
		FROM users u
		LEFT JOIN teams t ON u.team_id = t.id
		WHERE NOT u.is_hidden AND NOT u.is_admin
		ORDER BY u.score DESC, u.id ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		log.Printf("list users error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer rows.Close()

	users := make([]gin.H, 0)
	for rows.Next() {
		var (
			id       int64
			username string
			score    int
			country  string
			isBanned bool
			teamName sql.NullString
			solves   int
		)
		if err := rows.Scan(&id, &username, &score, &country, &isBanned, &teamName, &solves); err != nil {
			log.Printf("scan user error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		entry := gin.H{
			"id":       id,
			"username": username,
			"score":    score,
			"country":  country,
			"isBanned": isBanned,
			"solves":   solves,
		}
		if teamName.Valid {
			entry["teamName"] = teamName.String
		}
		users = append(users, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

// HandleGetUser is the public profile: rank, solves and a cumulative
// score timeline replayed from the submission ledger.
func HandleGetUser(c *gin.Context, db *sql.DB) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND"})
		return
	}

	var (
		username  string
		score     int
		bio       string
		country   string
		website   string
		github    string
		twitter   string
		isHidden  bool
		isBanned  bool
		teamID    sql.NullInt64
		teamName  sql.NullString
		createdAt time.Time
	)
	err = db.QueryRow(`
		SELECT u.username, u.score, u.bio, u.country, u.website, u.github, u.twitter,
			u.is_hidden, u.is_banned, u.team_id, t.name, u.created_at
		FROM users u
		LEFT JOIN teams t ON u.team_id = t.id
		WHERE u.id = $1 AND NOT u.is_admin`, userID).Scan(
		&username, &score, &bio, &country, &website, &github, &twitter,
		&isHidden, &isBanned, &teamID, &teamName, &createdAt)
	if err == sql.ErrNoRows || (err == nil && isHidden) {
		c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if err != nil {
		log.Printf("get user error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	var rank int
	err = db.QueryRow(`SELECT COUNT(*) + 1 FROM users WHERE NOT is_hidden AND NOT is_admin AND NOT is_banned AND score > $1`,
		score).Scan(&rank)
	if err != nil {
		log.Printf("user rank error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	solveRows, err := db.Query(`
		SELECT ch.id, ch.title, ch.category, ch.points, s.submitted_at
		FROM submissions s
		JOIN challenges ch ON s.challenge_id = ch.id
		WHERE s.user_id = $1 AND s.is_correct
		ORDER BY s.submitted_at ASC`, userID)
	if err != nil {
		log.Printf("user solves error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer solveRows.Close()

	solves := make([]gin.H, 0)
	timeline := make([]gin.H, 0)
	running := 0
	for solveRows.Next() {
		var (
			chID     int64
			title    string
			category string
			points   int
			solvedAt time.Time
		)
		if err := solveRows.Scan(&chID, &title, &category, &points, &solvedAt); err != nil {
			log.Printf("scan user solve error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		solves = append(solves, gin.H{
			"challengeId": chID,
			"challenge":   title,
			"category":    category,
			"points":      points,
			"solvedAt":    solvedAt.Format(time.RFC3339),
		})
		running += points
		timeline = append(timeline, gin.H{
			"time":  solvedAt.Format(time.RFC3339),
			"score": running,
		})
	}

	resp := gin.H{
		"id":        userID,
		"username":  username,
		"score":     score,
		"rank":      rank,
		"bio":       bio,
		"country":   country,
		"website":   website,
		"github":    github,
		"twitter":   twitter,
		"isBanned":  isBanned,
		"createdAt": createdAt.Format(time.RFC3339),
		"solves":    solves,
		"timeline":  timeline,
	}
	if teamID.Valid {
		resp["teamId"] = teamID.Int64
	}
	if teamName.Valid {
		resp["teamName"] = teamName.String
	}
	c.JSON(http.StatusOK, resp)
}

// HandleUpdateProfile saves the caller's profile fields.
func HandleUpdateProfile(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}
	if len(req.Bio) > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "BIO_TOO_LONG", "message": "bio must be at most 500 characters"})
		return
	}

	_, err := db.Exec(`
		UPDATE users SET bio = $1, country = $2, website = $3, github = $4, twitter = $5
		WHERE id = $6`,
		req.Bio, req.Country, req.Website, req.GitHub, req.Twitter, userID)
	if err != nil {
		log.Printf("update profile error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "profile updated"})
}

// HandleSetPlayMode switches the caller between individual and team play.
// The platform play_mode setting constrains the choice, and a user still
// in a team cannot switch to individual.
func HandleSetPlayMode(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")

	var req PlayModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}
	if req.PlayMode != "individual" && req.PlayMode != "team" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_PLAY_MODE", "message": "play mode must be individual or team"})
		return
	}

	platformMode := config.Get(db, "play_mode", "both")
	if platformMode != "both" && platformMode != req.PlayMode {
		c.JSON(http.StatusBadRequest, gin.H{"error": "PLAY_MODE_LOCKED", "message": "platform is running in " + platformMode + " mode"})
		return
	}

	if req.PlayMode == "individual" {
		var teamID sql.NullInt64
		if err := db.QueryRow(`SELECT team_id FROM users WHERE id = $1`, userID).Scan(&teamID); err == nil && teamID.Valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "STILL_IN_TEAM", "message": "leave your team first"})
			return
		}
	}

	if _, err := db.Exec(`UPDATE users SET play_mode = $1 WHERE id = $2`, req.PlayMode, userID); err != nil {
		log.Printf("set play mode error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"playMode": req.PlayMode})
}

// HandleChangePassword verifies the current password and stores a new hash.
func HandleChangePassword(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}
	if len(req.NewPassword) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "WEAK_PASSWORD", "message": "password must be at least 8 characters"})
		return
	}

	var passwordHash string
	if err := db.QueryRow(`SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&passwordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_CREDENTIALS", "message": "current password is wrong"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("hash password error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if _, err := db.Exec(`UPDATE users SET password_hash = $1 WHERE id = $2`, string(hash), userID); err != nil {
		log.Printf("change password error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}
