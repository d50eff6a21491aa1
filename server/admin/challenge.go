package admin

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"flagforge/server/audit"
	"flagforge/server/config"
)

// CreateChallengeRequest is the admin challenge payload.
type CreateChallengeRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Points      int    `json:"points" binding:"required"`
	Flag        string `json:"flag" binding:"required"`
	FileURL     string `json:"fileUrl"`
	LinkURL     string `json:"linkUrl"`
	Hint        string `json:"hint"`
	HintCost    int    `json:"hintCost"`
	MaxAttempts *int   `json:"maxAttempts"`
	Wave        int    `json:"wave"`
	IsHidden    bool   `json:"isHidden"`
	ShowFlag    bool   `json:"showFlag"`
	Author      string `json:"author"`
}

// UpdateChallengeRequest updates only the fields that are present.
type UpdateChallengeRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Points      *int    `json:"points"`
	Flag        *string `json:"flag"`
	FileURL     *string `json:"fileUrl"`
	LinkURL     *string `json:"linkUrl"`
	Hint        *string `json:"hint"`
	HintCost    *int    `json:"hintCost"`
	MaxAttempts *int    `json:"maxAttempts"`
	Wave        *int    `json:"wave"`
	IsHidden    *bool   `json:"isHidden"`
	ShowFlag    *bool   `json:"showFlag"`
	Author      *string `json:"author"`
}

// HandleListChallenges is the admin catalog: every challenge including
// hidden ones, with flags.
func HandleListChallenges(c *gin.Context, db *sql.DB) {
	rows, err := db.Query(`
		SELECT id, title, category, points, flag, hint_cost, max_attempts, wave,
			is_hidden, show_flag, solves, author, created_at
		FROM challenges
		ORDER BY category ASC, points ASC, id ASC`)
	if err != nil {
		log.Printf("admin list challenges error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer rows.Close()

	challenges := make([]gin.H, 0)
	for rows.Next() {
		var (
			id          int64
			title       string
			category    string
			points      int
			flag        string
			hintCost    int
			maxAttempts int
			wave        int
			isHidden    bool
			showFlag    bool
			solves      int
			author      string
			createdAt   string
		)
		if err := rows.Scan(&id, &title, &category, &points, &flag, &hintCost, &maxAttempts,
			&wave, &isHidden, &showFlag, &solves, &author, &createdAt); err != nil {
			log.Printf("scan admin challenge error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		challenges = append(challenges, gin.H{
			"id":          id,
			"title":       title,
			"category":    category,
			"points":      points,
			"flag":        flag,
			"hintCost":    hintCost,
			"maxAttempts": maxAttempts,
			"wave":        wave,
			"isHidden":    isHidden,
			"showFlag":    showFlag,
			"solves":      solves,
			"author":      author,
			"createdAt":   createdAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"challenges": challenges})
}

// HandleCreateChallenge inserts a challenge. When maxAttempts is omitted
// the platform default applies.
func HandleCreateChallenge(c *gin.Context, db *sql.DB) {
	var req CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}
	if req.Points <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_POINTS", "message": "points must be positive"})
		return
	}

	maxAttempts := config.GetInt(db, "default_max_attempts", 0)
	if req.MaxAttempts != nil {
		maxAttempts = *req.MaxAttempts
	}

	var id int64
	err := db.QueryRow(`
		INSERT INTO challenges (title, description, category, points, flag, file_url, link_url,
			hint, hint_cost, max_attempts, wave, is_hidden, show_flag, author)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		req.Title, req.Description, req.Category, req.Points, req.Flag, req.FileURL, req.LinkURL,
		req.Hint, req.HintCost, maxAttempts, req.Wave, req.IsHidden, req.ShowFlag, req.Author).Scan(&id)
	if err != nil {
		log.Printf("create challenge error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionChallengeCreate, req.Title, c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// HandleUpdateChallenge patches a challenge in place. Changing the flag
// or points does not rewrite past submissions.
func HandleUpdateChallenge(c *gin.Context, db *sql.DB) {
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	var req UpdateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST"})
		return
	}

	// One statement for the whole patch, so a failure leaves the row
	// untouched.
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if req.Title != nil {
		set("title", *req.Title)
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.Category != nil {
		set("category", *req.Category)
	}
	if req.Points != nil {
		set("points", *req.Points)
	}
	if req.Flag != nil {
		set("flag", *req.Flag)
	}
	if req.FileURL != nil {
		set("file_url", sql.NullString{String: *req.FileURL, Valid: *req.FileURL != ""})
	}
	if req.LinkURL != nil {
		set("link_url", sql.NullString{String: *req.LinkURL, Valid: *req.LinkURL != ""})
	}
	if req.Hint != nil {
		set("hint", sql.NullString{String: *req.Hint, Valid: *req.Hint != ""})
	}
	if req.HintCost != nil {
		set("hint_cost", *req.HintCost)
	}
	if req.MaxAttempts != nil {
		set("max_attempts", *req.MaxAttempts)
	}
	if req.Wave != nil {
		set("wave", *req.Wave)
	}
	if req.IsHidden != nil {
		set("is_hidden", *req.IsHidden)
	}
	if req.ShowFlag != nil {
		set("show_flag", *req.ShowFlag)
	}
	if req.Author != nil {
		set("author", *req.Author)
	}
	if len(sets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "no fields to update"})
		return
	}

	args = append(args, challengeID)
	result, err := db.Exec(
		`UPDATE challenges SET `+strings.Join(sets, ", ")+fmt.Sprintf(` WHERE id = $%d`, len(args)),
		args...)
	if err != nil {
		log.Printf("update challenge error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionChallengeUpdate, "challenge "+strconv.FormatInt(challengeID, 10), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "challenge updated"})
}

// HandleDeleteChallenge removes a challenge and everything hanging off it.
// Participant scores earned from it are not rolled back.
func HandleDeleteChallenge(c *gin.Context, db *sql.DB) {
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin delete challenge tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	// FK cascades would cover these, the explicit order keeps the intent
	// visible.
	for _, table := range []string{"submissions", "challenge_attempts", "hint_unlocks", "challenge_ratings"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE challenge_id = $1`, challengeID); err != nil {
			log.Printf("delete challenge rows error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	result, err := tx.Exec(`DELETE FROM challenges WHERE id = $1`, challengeID)
	if err != nil {
		log.Printf("delete challenge error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("commit delete challenge error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	adminID := c.GetInt64("userID")
	audit.WriteLog(db, &adminID, audit.ActionChallengeDelete, "challenge "+strconv.FormatInt(challengeID, 10), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "challenge deleted"})
}
