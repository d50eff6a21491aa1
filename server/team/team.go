package team

import (
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"flagforge/server/config"
)

// CreateTeamRequest is the team creation payload.
type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// JoinTeamRequest joins by invite code.
type JoinTeamRequest struct {
	InviteCode string `json:"inviteCode" binding:"required"`
}

// MemberRequest targets one member for kick / captain transfer.
type MemberRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

type memberRow struct {
	teamID  sql.NullInt64
	score   int
	isAdmin bool
}

func loadMember(db *sql.DB, userID int64) (memberRow, error) {
	var m memberRow
	err := db.QueryRow(`SELECT team_id, score, is_admin FROM users WHERE id = $1`, userID).
		Scan(&m.teamID, &m.score, &m.isAdmin)
	return m, err
}

func teamsEnabled(c *gin.Context, db *sql.DB) bool {
	if config.Get(db, "play_mode", "both") == "individual" {
		c.JSON(http.StatusForbidden, gin.H{"error": "TEAMS_DISABLED", "message": "team play is disabled"})
		return false
	}
	return true
}

// HandleCreateTeam creates a team with the caller as captain. The team
// starts with the creator's current score.
func HandleCreateTeam(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	if !teamsEnabled(c, db) {
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if len(name) < 2 || len(name) > 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_TEAM_NAME", "message": "team name must be 2-32 characters"})
		return
	}

	member, err := loadMember(db, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if member.teamID.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ALREADY_IN_TEAM", "message": "leave your current team first"})
		return
	}

	inviteCode := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin create team tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	var teamID int64
	err = tx.QueryRow(`
		INSERT INTO teams (name, captain_id, invite_code, score)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		name, userID, inviteCode, member.score).Scan(&teamID)
	if err != nil {
		// Unique name collision comes back as a constraint violation.
		c.JSON(http.StatusConflict, gin.H{"error": "TEAM_NAME_TAKEN", "message": "team name is already in use"})
		return
	}
	if _, err := tx.Exec(`UPDATE users SET team_id = $1 WHERE id = $2`, teamID, userID); err != nil {
		log.Printf("assign creator to team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("commit create team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": teamID, "name": name, "inviteCode": inviteCode})
}

// HandleJoinTeam adds the caller to the team behind an invite code. The
// joining user's score moves onto the team total.
func HandleJoinTeam(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	if !teamsEnabled(c, db) {
		return
	}

	var req JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	member, err := loadMember(db, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if member.teamID.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ALREADY_IN_TEAM", "message": "leave your current team first"})
		return
	}

	var (
		teamID     int64
		teamName   string
		teamBanned bool
	)
	err = db.QueryRow(`SELECT id, name, is_banned FROM teams WHERE invite_code = $1`,
		strings.TrimSpace(req.InviteCode)).Scan(&teamID, &teamName, &teamBanned)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "INVALID_INVITE", "message": "invite code not recognized"})
		return
	}
	if err != nil {
		log.Printf("lookup invite code error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if teamBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "TEAM_BANNED", "message": "team is banned"})
		return
	}

	maxMembers := config.GetInt(db, "max_team_members", 4)
	var memberCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE team_id = $1`, teamID).Scan(&memberCount); err != nil {
		log.Printf("count team members error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if maxMembers > 0 && memberCount >= maxMembers {
		c.JSON(http.StatusBadRequest, gin.H{"error": "TEAM_FULL", "message": "team is full"})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin join team tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE users SET team_id = $1 WHERE id = $2`, teamID, userID); err != nil {
		log.Printf("join team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if _, err := tx.Exec(`UPDATE teams SET score = score + $1 WHERE id = $2`, member.score, teamID); err != nil {
		log.Printf("add score to team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("commit join team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": teamID, "name": teamName})
}

// HandleLeaveTeam removes the caller from their team. A leaving captain
// hands the role to the longest-standing member; the last member leaving
// deletes the team.
func HandleLeaveTeam(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")

	member, err := loadMember(db, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if !member.teamID.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "NO_TEAM", "message": "you are not in a team"})
		return
	}
	teamID := member.teamID.Int64

	var captainID sql.NullInt64
	if err := db.QueryRow(`SELECT captain_id FROM teams WHERE id = $1`, teamID).Scan(&captainID); err != nil {
		log.Printf("lookup team captain error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin leave team tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE users SET team_id = NULL WHERE id = $1`, userID); err != nil {
		log.Printf("leave team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if _, err := tx.Exec(`UPDATE teams SET score = score - $1 WHERE id = $2`, member.score, teamID); err != nil {
		log.Printf("remove score from team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	var remaining int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE team_id = $1`, teamID).Scan(&remaining); err != nil {
		log.Printf("count remaining members error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if remaining == 0 {
		if _, err := tx.Exec(`DELETE FROM teams WHERE id = $1`, teamID); err != nil {
			log.Printf("delete empty team error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	} else if captainID.Valid && captainID.Int64 == userID {
		var newCaptain int64
		err := tx.QueryRow(`SELECT id FROM users WHERE team_id = $1 ORDER BY created_at ASC, id ASC LIMIT 1`,
			teamID).Scan(&newCaptain)
		if err != nil {
			log.Printf("pick new captain error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		if _, err := tx.Exec(`UPDATE teams SET captain_id = $1 WHERE id = $2`, newCaptain, teamID); err != nil {
			log.Printf("transfer captain error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("commit leave team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left team", "teamDeleted": remaining == 0})
}

// requireCaptain loads the caller's team and verifies captaincy.
func requireCaptain(c *gin.Context, db *sql.DB, userID int64) (int64, bool) {
	var teamID sql.NullInt64
	if err := db.QueryRow(`SELECT team_id FROM users WHERE id = $1`, userID).Scan(&teamID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return 0, false
	}
	if !teamID.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "NO_TEAM", "message": "you are not in a team"})
		return 0, false
	}
	var captainID sql.NullInt64
	if err := db.QueryRow(`SELECT captain_id FROM teams WHERE id = $1`, teamID.Int64).Scan(&captainID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return 0, false
	}
	if !captainID.Valid || captainID.Int64 != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "NOT_CAPTAIN", "message": "only the captain can do this"})
		return 0, false
	}
	return teamID.Int64, true
}

// HandleKickMember removes a teammate. Captain only, not usable on self.
func HandleKickMember(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	teamID, ok := requireCaptain(c, db, userID)
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}
	if req.UserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CANNOT_KICK_SELF", "message": "leave the team instead"})
		return
	}

	var targetScore int
	var targetTeam sql.NullInt64
	err := db.QueryRow(`SELECT score, team_id FROM users WHERE id = $1`, req.UserID).Scan(&targetScore, &targetTeam)
	if err != nil || !targetTeam.Valid || targetTeam.Int64 != teamID {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_A_MEMBER", "message": "user is not in your team"})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin kick tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE users SET team_id = NULL WHERE id = $1`, req.UserID); err != nil {
		log.Printf("kick member error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if _, err := tx.Exec(`UPDATE teams SET score = score - $1 WHERE id = $2`, targetScore, teamID); err != nil {
		log.Printf("remove kicked score error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("commit kick error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

// HandleTransferCaptain hands captaincy to another member.
func HandleTransferCaptain(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	teamID, ok := requireCaptain(c, db, userID)
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	var targetTeam sql.NullInt64
	err := db.QueryRow(`SELECT team_id FROM users WHERE id = $1`, req.UserID).Scan(&targetTeam)
	if err != nil || !targetTeam.Valid || targetTeam.Int64 != teamID {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_A_MEMBER", "message": "user is not in your team"})
		return
	}

	if _, err := db.Exec(`UPDATE teams SET captain_id = $1 WHERE id = $2`, req.UserID, teamID); err != nil {
		log.Printf("transfer captain error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "captain transferred"})
}

// HandleRegenerateInvite rotates the invite code. Captain only.
func HandleRegenerateInvite(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	teamID, ok := requireCaptain(c, db, userID)
	if !ok {
		return
	}

	inviteCode := uuid.NewString()
	if _, err := db.Exec(`UPDATE teams SET invite_code = $1 WHERE id = $2`, inviteCode, teamID); err != nil {
		log.Printf("regenerate invite error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"inviteCode": inviteCode})
}

// HandleGetInvite returns the invite code to any member of the team.
func HandleGetInvite(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")

	var teamID sql.NullInt64
	if err := db.QueryRow(`SELECT team_id FROM users WHERE id = $1`, userID).Scan(&teamID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if !teamID.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "NO_TEAM", "message": "you are not in a team"})
		return
	}

	var inviteCode string
	if err := db.QueryRow(`SELECT invite_code FROM teams WHERE id = $1`, teamID.Int64).Scan(&inviteCode); err != nil {
		log.Printf("get invite code error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"inviteCode": inviteCode})
}

// HandleDeleteTeam disbands the caller's team. Captain only. Members keep
// their personal scores.
func HandleDeleteTeam(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	teamID, ok := requireCaptain(c, db, userID)
	if !ok {
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
		log.Printf("detach members error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if _, err := tx.Exec(`DELETE FROM teams WHERE id = $1`, teamID); err != nil {
		log.Printf("delete team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("commit delete team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "team deleted"})
}
