package submission

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"flagforge/server/config"
	"flagforge/server/contest"
)

// ScoreboardEntry is one ranked row.
type ScoreboardEntry struct {
	Rank      int     `json:"rank"`
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	TeamName  *string `json:"teamName,omitempty"`
	Score     int     `json:"score"`
	LastSolve *string `json:"lastSolve"`
	Members   int     `json:"members,omitempty"`
}

// checkScoreboardAccess applies the visibility settings. Returns false
// after writing the error response.
func checkScoreboardAccess(c *gin.Context, db *sql.DB, v contest.Viewer) bool {
	if v.IsAdmin {
		return true
	}
	if !config.GetBool(db, "scoreboard_visible", true) {
		c.JSON(http.StatusForbidden, gin.H{"error": "SCOREBOARD_HIDDEN", "message": "scoreboard is disabled"})
		return false
	}
	if config.GetBool(db, "hide_scores_public", false) && v.UserID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "LOGIN_REQUIRED", "message": "log in to view the scoreboard"})
		return false
	}
	return true
}

func pageParams(c *gin.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

// HandleGetScoreboard returns the ranked standings, user or team view.
// After the freeze time non-admin viewers get scores recomputed from the
// ledger as of the freeze; accrual itself never stops.
func HandleGetScoreboard(c *gin.Context, db *sql.DB) {
	viewer := contest.ViewerFrom(c)
	if !checkScoreboardAccess(c, db, viewer) {
		return
	}

	page, limit, offset := pageParams(c)
	boardType := c.DefaultQuery("type", "users")

	now := time.Now()
	freeze, hasFreeze := contest.LoadFreeze(db)
	frozen := hasFreeze && contest.IsFrozen(now, freeze) && !viewer.IsAdmin

	var (
		entries []ScoreboardEntry
		total   int
		err     error
	)
	if boardType == "teams" {
		entries, total, err = teamStandings(db, frozen, freeze, limit, offset)
	} else {
		boardType = "users"
		entries, total, err = userStandings(db, frozen, freeze, limit, offset)
	}
	if err != nil {
		log.Printf("scoreboard query error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	resp := gin.H{
		"type":       boardType,
		"scoreboard": entries,
		"frozen":     frozen,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	}
	if frozen {
		resp["frozenAt"] = freeze.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func userStandings(db *sql.DB, frozen bool, freeze time.Time, limit, offset int) ([]ScoreboardEntry, int, error) {
	var total int
	err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE NOT is_hidden AND NOT is_admin AND NOT is_banned`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	var rows *sql.Rows
	if frozen {
		rows, err = db.Query(`
			SELECT u.id, u.username, t.name,
				COALESCE((SELECT SUM(ch.points) FROM submissions s
					JOIN challenges ch ON s.challenge_id = ch.id
					WHERE s.user_id = u.id AND s.is_correct AND s.submitted_at < $1), 0) AS score,
				(SELECT MAX(s.submitted_at) FROM submissions s
					WHERE s.user_id = u.id AND s.is_correct AND s.submitted_at < $1) AS last_solve
			FROM users u
			LEFT JOIN teams t ON u.team_id = t.id
			WHERE NOT u.is_hidden AND NOT u.is_admin AND NOT u.is_banned
			ORDER BY score DESC, last_solve ASC NULLS LAST
			LIMIT $2 OFFSET $3`, freeze, limit, offset)
	} else {
		rows, err = db.Query(`
			SELECT u.id, u.username, t.name, u.score,
				(SELECT MAX(s.submitted_at) FROM submissions s
					WHERE s.user_id = u.id AND s.is_correct) AS last_solve
			FROM users u
			LEFT JOIN teams t ON u.team_id = t.id
			WHERE NOT u.is_hidden AND NOT u.is_admin AND NOT u.is_banned
			ORDER BY u.score DESC, last_solve ASC NULLS LAST
			LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]ScoreboardEntry, 0)
	for rows.Next() {
		var (
			entry     ScoreboardEntry
			teamName  sql.NullString
			lastSolve sql.NullTime
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &teamName, &entry.Score, &lastSolve); err != nil {
			return nil, 0, err
		}
		if teamName.Valid {
			entry.TeamName = &teamName.String
		}
		if lastSolve.Valid {
			formatted := lastSolve.Time.Format(time.RFC3339)
			entry.LastSolve = &formatted
		}
		entry.Rank = offset + len(entries) + 1
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// teamStandings always recomputes team scores from the ledger so banned
// members' contributions stay excluded. The stored teams.score column is
// the fast path for profile pages, not for rankings.
func teamStandings(db *sql.DB, frozen bool, freeze time.Time, limit, offset int) ([]ScoreboardEntry, int, error) {
	var total int
	err := db.QueryRow(`SELECT COUNT(*) FROM teams WHERE NOT is_hidden AND NOT is_banned`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	bound := time.Now().Add(time.Hour) // effectively unbounded
	if frozen {
		bound = freeze
	}

	rows, err := db.Query(`
		SELECT t.id, t.name,
			COALESCE((SELECT SUM(ch.points) FROM submissions s
				JOIN challenges ch ON s.challenge_id = ch.id
				JOIN users m ON s.user_id = m.id
				WHERE s.team_id = t.id AND s.is_correct AND NOT m.is_banned
				  AND s.submitted_at < $1), 0) AS score,
			(SELECT MAX(s.submitted_at) FROM submissions s
				JOIN users m ON s.user_id = m.id
				WHERE s.team_id = t.id AND s.is_correct AND NOT m.is_banned
				  AND s.submitted_at < $1) AS last_solve,
			(SELECT COUNT(*) FROM users m WHERE m.team_id = t.id) AS members
		FROM teams t
		WHERE NOT t.is_hidden AND NOT t.is_banned
		ORDER BY score DESC, last_solve ASC NULLS LAST
		LIMIT $2 OFFSET $3`, bound, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]ScoreboardEntry, 0)
	for rows.Next() {
		var (
			entry     ScoreboardEntry
			lastSolve sql.NullTime
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Score, &lastSolve, &entry.Members); err != nil {
			return nil, 0, err
		}
		if lastSolve.Valid {
			formatted := lastSolve.Time.Format(time.RFC3339)
			entry.LastSolve = &formatted
		}
		entry.Rank = offset + len(entries) + 1
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// HandleGetRecentSolves returns the latest accepted solves for the public
// feed. Hidden and banned participants never appear; under freeze the feed
// stops at the freeze time for non-admins.
func HandleGetRecentSolves(c *gin.Context, db *sql.DB) {
	viewer := contest.ViewerFrom(c)
	if !checkScoreboardAccess(c, db, viewer) {
		return
	}

	now := time.Now()
	freeze, hasFreeze := contest.LoadFreeze(db)
	bound := now.Add(time.Hour)
	if hasFreeze && contest.IsFrozen(now, freeze) && !viewer.IsAdmin {
		bound = freeze
	}

	rows, err := db.Query(`
		SELECT u.username, t.name, ch.id, ch.title, ch.points, s.submitted_at
		FROM submissions s
		JOIN users u ON s.user_id = u.id
		JOIN challenges ch ON s.challenge_id = ch.id
		LEFT JOIN teams t ON s.team_id = t.id
		WHERE s.is_correct AND s.submitted_at < $1
		  AND NOT u.is_hidden AND NOT u.is_admin AND NOT u.is_banned
		ORDER BY s.submitted_at DESC
		LIMIT 20`, bound)
	if err != nil {
		log.Printf("recent solves query error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer rows.Close()

	solves := make([]gin.H, 0)
	for rows.Next() {
		var (
			username    string
			teamName    sql.NullString
			challengeID int64
			title       string
			points      int
			solvedAt    time.Time
		)
		if err := rows.Scan(&username, &teamName, &challengeID, &title, &points, &solvedAt); err != nil {
			log.Printf("recent solves scan error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		solve := gin.H{
			"username":    username,
			"challengeId": challengeID,
			"challenge":   title,
			"points":      points,
			"solvedAt":    solvedAt.Format(time.RFC3339),
		}
		if teamName.Valid {
			solve["teamName"] = teamName.String
		}
		solves = append(solves, solve)
	}

	c.JSON(http.StatusOK, gin.H{"solves": solves})
}
