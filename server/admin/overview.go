package admin

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// overviewStats is the admin dashboard summary.
type overviewStats struct {
	Users              int64 `json:"users"`
	Teams              int64 `json:"teams"`
	Challenges         int64 `json:"challenges"`
	Submissions        int64 `json:"submissions"`
	Solves             int64 `json:"solves"`
	SubmissionsLastHr  int64 `json:"submissionsLastHour"`
	BannedUsers        int64 `json:"bannedUsers"`
	HiddenChallenges   int64 `json:"hiddenChallenges"`
	UnlockedHints      int64 `json:"unlockedHints"`
	RegisteredLastDay  int64 `json:"registeredLastDay"`
}

// HandleAdminOverview returns headline counts for the dashboard.
func HandleAdminOverview(c *gin.Context, db *sql.DB) {
	var stats overviewStats
	counts := []struct {
		query string
		dest  *int64
		args  []any
	}{
		{`SELECT COUNT(*) FROM users WHERE NOT is_admin`, &stats.Users, nil},
		{`SELECT COUNT(*) FROM teams`, &stats.Teams, nil},
		{`SELECT COUNT(*) FROM challenges`, &stats.Challenges, nil},
		{`SELECT COUNT(*) FROM submissions`, &stats.Submissions, nil},
		{`SELECT COUNT(*) FROM submissions WHERE is_correct`, &stats.Solves, nil},
		{`SELECT COUNT(*) FROM submissions WHERE submitted_at > $1`, &stats.SubmissionsLastHr, []any{time.Now().Add(-time.Hour)}},
		{`SELECT COUNT(*) FROM users WHERE is_banned`, &stats.BannedUsers, nil},
		{`SELECT COUNT(*) FROM challenges WHERE is_hidden`, &stats.HiddenChallenges, nil},
		{`SELECT COUNT(*) FROM hint_unlocks`, &stats.UnlockedHints, nil},
		{`SELECT COUNT(*) FROM users WHERE created_at > $1`, &stats.RegisteredLastDay, []any{time.Now().Add(-24 * time.Hour)}},
	}
	for _, count := range counts {
		if err := db.QueryRow(count.query, count.args...).Scan(count.dest); err != nil {
			log.Printf("overview count error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}

	c.JSON(http.StatusOK, stats)
}
