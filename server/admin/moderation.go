package admin

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"flagforge/server/audit"
)

// UpdateUserRequest patches moderation flags and the score override.
type UpdateUserRequest struct {
	IsAdmin     *bool   `json:"isAdmin"`
	IsHidden    *bool   `json:"isHidden"`
	IsBanned    *bool   `json:"isBanned"`
	Score       *int    `json:"score"`
	NewPassword *string `json:"newPassword"`
}

// UpdateTeamRequest patches team moderation flags and the score override.
type UpdateTeamRequest struct {
	IsHidden *bool `json:"isHidden"`
	IsBanned *bool `json:"isBanned"`
	Score    *int  `json:"score"`
}

// HandleListUsers is the admin user listing with moderation state.
func HandleListUsers(c *gin.Context, db *sql.DB) {
	rows, err := db.Query(`
		SELECT u.id, u.username, u.email, u.score, u.is_admin, u.is_hidden, u.is_banned,
			u.team_id, t.name, u.created_at
		FROM users u
		LEFT JOIN teams t ON u.team_id = t.id
		ORDER BY u.id ASC`)
	if err != nil {
		log.Printf("admin list users error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer rows.Close()

	users := make([]gin.H, 0)
	for rows.Next() {
		var (
			id        int64
			username  string
			email     string
			score     int
			isAdmin   bool
			isHidden  bool
			isBanned  bool
			teamID    sql.NullInt64
			teamName  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&id, &username, &email, &score, &isAdmin, &isHidden, &isBanned,
			&teamID, &teamName, &createdAt); err != nil {
			log.Printf("scan admin user error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		entry := gin.H{
			"id":        id,
			"username":  username,
			"email":     email,
			"score":     score,
			"isAdmin":   isAdmin,
			"isHidden":  isHidden,
			"isBanned":  isBanned,
			"createdAt": createdAt,
		}
		if teamID.Valid {
			entry["teamId"] = teamID.Int64
		}
		if teamName.Valid {
			entry["teamName"] = teamName.String
		}
		users = append(users, entry)
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// HandleUpdateUser applies moderation changes. The score override is
// authoritative: it is written as-is, never re-derived from the ledger.
func HandleUpdateUser(c *gin.Context, db *sql.DB) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	var exists bool
	if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil || !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND"})
		return
	}

	if req.IsAdmin != nil {
		if _, err := db.Exec(`UPDATE users SET is_admin = $1 WHERE id = $2`, *req.IsAdmin, userID); err != nil {
			log.Printf("update user admin flag error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	if req.IsHidden != nil {
		if _, err := db.Exec(`UPDATE users SET is_hidden = $1 WHERE id = $2`, *req.IsHidden, userID); err != nil {
			log.Printf("update user hidden flag error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	if req.IsBanned != nil {
		if _, err := db.Exec(`UPDATE users SET is_banned = $1 WHERE id = $2`, *req.IsBanned, userID); err != nil {
			log.Printf("update user banned flag error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	if req.Score != nil {
		if _, err := db.Exec(`UPDATE users SET score = $1 WHERE id = $2`, *req.Score, userID); err != nil {
			log.Printf("override user score error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	if req.NewPassword != nil && *req.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("hash password error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		if _, err := db.Exec(`UPDATE users SET password_hash = $1 WHERE id = $2`, string(hash), userID); err != nil {
			log.Printf("reset user password error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionUserUpdate, "user "+strconv.FormatInt(userID, 10), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "user updated"})
}

// HandleDeleteUser removes an account and its ledger rows. The team keeps
// solves already attributed to it but loses the user's personal score.
func HandleDeleteUser(c *gin.Context, db *sql.DB) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND"})
		return
	}

	var (
		score  int
		teamID sql.NullInt64
	)
	err = db.QueryRow(`SELECT score, team_id FROM users WHERE id = $1`, userID).Scan(&score, &teamID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if err != nil {
		log.Printf("load user for delete error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin delete user tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	if teamID.Valid {
		if _, err := tx.Exec(`UPDATE teams SET score = score - $1 WHERE id = $2`, score, teamID.Int64); err != nil {
			log.Printf("remove deleted user score error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		if _, err := tx.Exec(`
			UPDATE teams SET captain_id = (
				SELECT id FROM users WHERE team_id = $1 AND id != $2 ORDER BY created_at ASC, id ASC LIMIT 1
			) WHERE id = $1 AND captain_id = $2`, teamID.Int64, userID); err != nil {
			log.Printf("transfer captain on delete error: %v", err)
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
			log.Printf("delete user rows error: %v", err)
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
		log.Printf("commit delete user error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionUserDelete, "user "+strconv.FormatInt(userID, 10), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// HandleUpdateTeam applies team moderation changes.
func HandleUpdateTeam(c *gin.Context, db *sql.DB) {
	teamID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "TEAM_NOT_FOUND"})
		return
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	var exists bool
	if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists); err != nil || !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "TEAM_NOT_FOUND"})
		return
	}

	if req.IsHidden != nil {
		if _, err := db.Exec(`UPDATE teams SET is_hidden = $1 WHERE id = $2`, *req.IsHidden, teamID); err != nil {
			log.Printf("update team hidden flag error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	if req.IsBanned != nil {
		if _, err := db.Exec(`UPDATE teams SET is_banned = $1 WHERE id = $2`, *req.IsBanned, teamID); err != nil {
			log.Printf("update team banned flag error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	if req.Score != nil {
		if _, err := db.Exec(`UPDATE teams SET score = $1 WHERE id = $2`, *req.Score, teamID); err != nil {
			log.Printf("override team score error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionTeamUpdate, "team "+strconv.FormatInt(teamID, 10), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "team updated"})
}

// HandleDeleteTeam disbands a team by admin action.
func HandleDeleteTeam(c *gin.Context, db *sql.DB) {
	teamID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "TEAM_NOT_FOUND"})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin delete team tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE users SET team_id = NULL WHERE team_id = $1`, teamID); err != nil {
		log.Printf("detach team members error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	result, err := tx.Exec(`DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		log.Printf("delete team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "TEAM_NOT_FOUND"})
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("commit delete team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionTeamDelete, "team "+strconv.FormatInt(teamID, 10), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "team deleted"})
}

// HandleResetScores zeroes all scores and clears the submission ledger.
// Admin accounts and the challenge catalog survive.
func HandleResetScores(c *gin.Context, db *sql.DB) {
	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin reset scores tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM submissions`,
		`DELETE FROM challenge_attempts`,
		`DELETE FROM hint_unlocks`,
		`UPDATE users SET score = 0`,
		`UPDATE teams SET score = 0`,
		`UPDATE challenges SET solves = 0`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			log.Printf("reset scores error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("commit reset scores error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionScoresReset, "all scores and submissions cleared", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "scores reset"})
}
