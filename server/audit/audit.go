package audit

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Action names recorded in the audit log.
const (
	ActionLogin            = "login"
	ActionLoginFailed      = "login_failed"
	ActionRegister         = "register"
	ActionDeleteAccount    = "delete_account"
	ActionConfigUpdate     = "config_update"
	ActionWaveActivate     = "wave_activate"
	ActionChallengeCreate  = "challenge_create"
	ActionChallengeUpdate  = "challenge_update"
	ActionChallengeDelete  = "challenge_delete"
	ActionUserUpdate       = "user_update"
	ActionUserDelete       = "user_delete"
	ActionTeamUpdate       = "team_update"
	ActionTeamDelete       = "team_delete"
	ActionScoresReset      = "scores_reset"
	ActionIntegrityFailure = "integrity_failure"
)

// WriteLog appends an audit row. Audit writes never fail the request,
// errors are logged and swallowed.
func WriteLog(db *sql.DB, userID *int64, action, detail, ip string) {
	_, err := db.Exec(
		`INSERT INTO audit_log (user_id, action, detail, ip_address) VALUES ($1, $2, $3, $4)`,
		userID, action, detail, ip)
	if err != nil {
		log.Printf("audit write failed (%s): %v", action, err)
	}
}

// HandleGetLogs returns the audit trail, newest first. Admin only.
func HandleGetLogs(c *gin.Context, db *sql.DB) {
	limit := 100
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 && n <= 500 {
		limit = n
	}

	rows, err := db.Query(`
		SELECT a.id, a.user_id, u.username, a.action, a.detail, a.ip_address, a.created_at
		FROM audit_log a
		LEFT JOIN users u ON a.user_id = u.id
		ORDER BY a.id DESC
		LIMIT $1`, limit)
	if err != nil {
		log.Printf("query audit log error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer rows.Close()

	entries := make([]gin.H, 0)
	for rows.Next() {
		var (
			id        int64
			userID    sql.NullInt64
			username  sql.NullString
			action    string
			detail    string
			ip        string
			createdAt string
		)
		if err := rows.Scan(&id, &userID, &username, &action, &detail, &ip, &createdAt); err != nil {
			log.Printf("scan audit log error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		entry := gin.H{
			"id":        id,
			"action":    action,
			"detail":    detail,
			"ipAddress": ip,
			"createdAt": createdAt,
		}
		if userID.Valid {
			entry["userId"] = userID.Int64
		}
		if username.Valid {
			entry["username"] = username.String
		}
		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
