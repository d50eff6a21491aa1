package admin

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// HandleExportScoreboard writes the final standings as an xlsx download.
// Both sheets are live data; the freeze never applies to admin exports.
func HandleExportScoreboard(c *gin.Context, db *sql.DB) {
	f := excelize.NewFile()
	defer f.Close()

	teamSheet := "Teams"
	f.SetSheetName("Sheet1", teamSheet)
	if _, err := f.NewSheet("Users"); err != nil {
		log.Printf("create export sheet error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	teamHeaders := []string{"Rank", "Team", "Score", "Members", "Last Solve"}
	for i, h := range teamHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(teamSheet, cell, h)
	}

	teamRows, err := db.Query(`
		SELECT t.name,
			COALESCE((SELECT SUM(ch.points) FROM submissions s
				JOIN challenges ch ON s.challenge_id = ch.id
				JOIN users m ON s.user_id = m.id
				WHERE s.team_id = t.id AND s.is_correct AND NOT m.is_banned), 0) AS score,
			(SELECT COUNT(*) FROM users m WHERE m.team_id = t.id) AS members,
			(SELECT MAX(s.submitted_at) FROM submissions s
				JOIN users m ON s.user_id = m.id
				WHERE s.team_id = t.id AND s.is_correct AND NOT m.is_banned) AS last_solve
		FROM teams t
		WHERE NOT t.is_hidden AND NOT t.is_banned
		ORDER BY score DESC, last_solve ASC NULLS LAST`)
	if err != nil {
		log.Printf("export teams query error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	row := 2
	for teamRows.Next() {
		var (
			name      string
			score     int
			members   int
			lastSolve sql.NullTime
		)
		if err := teamRows.Scan(&name, &score, &members, &lastSolve); err != nil {
			teamRows.Close()
			log.Printf("export teams scan error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		values := []any{row - 1, name, score, members, ""}
		if lastSolve.Valid {
			values[4] = lastSolve.Time.Format(time.RFC3339)
		}
		for i, val := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(teamSheet, cell, val)
		}
		row++
	}
	teamRows.Close()

	userHeaders := []string{"Rank", "Username", "Team", "Score", "Last Solve"}
	for i, h := range userHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Users", cell, h)
	}

	userRows, err := db.Query(`
		SELECT u.username, t.name, u.score,
			(SELECT MAX(s.submitted_at) FROM submissions s WHERE s.user_id = u.id AND s.is_correct) AS last_solve
		FROM users u
		LEFT JOIN teams t ON u.team_id = t.id
		WHERE NOT u.is_hidden AND NOT u.is_admin AND NOT u.is_banned
		ORDER BY u.score DESC, last_solve ASC NULLS LAST`)
	if err != nil {
		log.Printf("export users query error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	row = 2
	for userRows.Next() {
		var (
			username  string
			teamName  sql.NullString
			score     int
			lastSolve sql.NullTime
		)
		if err := userRows.Scan(&username, &teamName, &score, &lastSolve); err != nil {
			userRows.Close()
			log.Printf("export users scan error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		values := []any{row - 1, username, teamName.String, score, ""}
		if lastSolve.Valid {
			values[4] = lastSolve.Time.Format(time.RFC3339)
		}
		for i, val := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue("Users", cell, val)
		}
		row++
	}
	userRows.Close()

	f.SetColWidth(teamSheet, "B", "B", 25)
	f.SetColWidth(teamSheet, "E", "E", 22)
	f.SetColWidth("Users", "B", "C", 25)
	f.SetColWidth("Users", "E", "E", 22)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=scoreboard.xlsx")

	if err := f.Write(c.Writer); err != nil {
		log.Printf("write scoreboard export error: %v", err)
	}
}
