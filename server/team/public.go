package team

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleListTeams is the public team directory, paginated.
func HandleListTeams(c *gin.Context, db *sql.DB) {
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
	if err := db.QueryRow(`SELECT COUNT(*) FROM teams WHERE NOT is_hidden`).Scan(&total); err != nil {
		log.Printf("count teams error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	rows, err := db.Query(`
		SELECT t.id, t.name, t.score, t.is_banned, t.created_at,
			(SELECT COUNT(*) FROM users u WHERE u.team_id = t.id) AS members
		FROM teams t
		WHERE NOT t.is_hidden
		ORDER BY t.score DESC, t.id ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		log.Printf("list teams error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer rows.Close()

	teams := make([]gin.H, 0)
	for rows.Next() {
		var (
			id        int64
			name      string
			score     int
			isBanned  bool
			createdAt time.Time
			members   int
		)
		if err := rows.Scan(&id, &name, &score, &isBanned, &createdAt, &members); err != nil {
			log.Printf("scan team error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		teams = append(teams, gin.H{
			"id":        id,
			"name":      name,
			"score":     score,
			"isBanned":  isBanned,
			"members":   members,
			"createdAt": createdAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"teams": teams,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + limit - 1) / limit,
		},
	})
}

// HandleGetTeam is the public team profile: rank, members and solves.
func HandleGetTeam(c *gin.Context, db *sql.DB) {
	teamID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "TEAM_NOT_FOUND"})
		return
	}

	var (
		name      string
		score     int
		captainID sql.NullInt64
		isHidden  bool
		isBanned  bool
		createdAt time.Time
	)
	err = db.QueryRow(`SELECT name, score, captain_id, is_hidden, is_banned, created_at FROM teams WHERE id = $1`,
		teamID).Scan(&name, &score, &captainID, &isHidden, &isBanned, &createdAt)
	if err == sql.ErrNoRows || (err == nil && isHidden) {
		c.JSON(http.StatusNotFound, gin.H{"error": "TEAM_NOT_FOUND"})
		return
	}
	if err != nil {
		log.Printf("get team error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	var rank int
	err = db.QueryRow(`SELECT COUNT(*) + 1 FROM teams WHERE NOT is_hidden AND NOT is_banned AND score > $1`,
		score).Scan(&rank)
	if err != nil {
		log.Printf("team rank error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	memberRows, err := db.Query(`
		SELECT id, username, score FROM users WHERE team_id = $1 ORDER BY score DESC, id ASC`, teamID)
	if err != nil {
		log.Printf("team members error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer memberRows.Close()

	members := make([]gin.H, 0)
	for memberRows.Next() {
		var (
			id       int64
			username string
			mScore   int
		)
		if err := memberRows.Scan(&id, &username, &mScore); err != nil {
			log.Printf("scan member error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		members = append(members, gin.H{
			"id":        id,
			"username":  username,
			"score":     mScore,
			"isCaptain": captainID.Valid && captainID.Int64 == id,
		})
	}

	solveRows, err := db.Query(`
		SELECT ch.id, ch.title, ch.category, ch.points, u.username, s.submitted_at
		FROM submissions s
		JOIN challenges ch ON s.challenge_id = ch.id
		JOIN users u ON s.user_id = u.id
		WHERE s.team_id = $1 AND s.is_correct
		ORDER BY s.submitted_at ASC`, teamID)
	if err != nil {
		log.Printf("team solves error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer solveRows.Close()

	solves := make([]gin.H, 0)
	for solveRows.Next() {
		var (
			chID     int64
			title    string
			category string
			points   int
			username string
			solvedAt time.Time
		)
		if err := solveRows.Scan(&chID, &title, &category, &points, &username, &solvedAt); err != nil {
			log.Printf("scan team solve error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		solves = append(solves, gin.H{
			"challengeId": chID,
			"challenge":   title,
			"category":    category,
			"points":      points,
			"solvedBy":    username,
			"solvedAt":    solvedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        teamID,
		"name":      name,
		"score":     score,
		"rank":      rank,
		"isBanned":  isBanned,
		"createdAt": createdAt.Format(time.RFC3339),
		"members":   members,
		"solves":    solves,
	})
}
