package question

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"flagforge/server/config"
	"flagforge/server/contest"
)

// ChallengeSummary is one catalog entry. The flag is never part of it.
type ChallengeSummary struct {
	ID                int64    `json:"id"`
	Title             string   `json:"title"`
	Category          string   `json:"category"`
	Points            int      `json:"points"`
	Solves            int      `json:"solves"`
	Wave              int      `json:"wave"`
	Author            string   `json:"author,omitempty"`
	Solved            bool     `json:"solved"`
	SolvedByTeam      bool     `json:"solvedByTeam"`
	HasHint           bool     `json:"hasHint"`
	HintCost          int      `json:"hintCost,omitempty"`
	MaxAttempts       int      `json:"maxAttempts"`
	AttemptsUsed      int      `json:"attemptsUsed"`
	AttemptsRemaining *int     `json:"attemptsRemaining,omitempty"`
	Rating            float64  `json:"rating"`
	RatingCount       int      `json:"ratingCount"`
	Files             []string `json:"files,omitempty"`
	Links             []string `json:"links,omitempty"`
}

type viewerRow struct {
	isAdmin  bool
	isBanned bool
	teamID   sql.NullInt64
}

func loadViewer(db *sql.DB, userID int64) (viewerRow, error) {
	var v viewerRow
	err := db.QueryRow(`SELECT is_admin, is_banned, team_id FROM users WHERE id = $1`, userID).
		Scan(&v.isAdmin, &v.isBanned, &v.teamID)
	return v, err
}

// checkCatalogAccess runs the shared catalog guards: banned accounts are
// out, team play mode requires a team, and the catalog opens with the
// competition. Writes the error response itself.
func checkCatalogAccess(c *gin.Context, db *sql.DB, v viewerRow) bool {
	if v.isBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "BANNED", "message": "account is banned"})
		return false
	}
	viewer := contest.Viewer{IsAdmin: v.isAdmin}
	if v.teamID.Valid {
		viewer.TeamID = v.teamID.Int64
	}
	if !contest.CanAccessChallenges(viewer, config.Get(db, "play_mode", "both")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "TEAM_REQUIRED", "message": "join a team to view challenges"})
		return false
	}
	if !v.isAdmin {
		start, _ := contest.LoadWindow(db)
		if !start.IsZero() && time.Now().Before(start) {
			c.JSON(http.StatusForbidden, gin.H{"error": "CTF_NOT_STARTED", "message": "competition has not started"})
			return false
		}
	}
	return true
}

func parseJSONList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// HandleListChallenges returns the visible catalog grouped by category,
// decorated with the viewer's solve/attempt/rating state.
func HandleListChallenges(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	viewer, err := loadViewer(db, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if !checkCatalogAccess(c, db, viewer) {
		return
	}

	waves := contest.LoadWaveConfig(db)

	rows, err := db.Query(`
		SELECT id, title, category, points, solves, wave, author,
			COALESCE(hint, '') != '', hint_cost, max_attempts, extra_files, extra_links, is_hidden
		FROM challenges
		ORDER BY category ASC, points ASC, id ASC`)
	if err != nil {
		log.Printf("list challenges error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer rows.Close()

	challenges := make([]ChallengeSummary, 0)
	for rows.Next() {
		var (
			ch         ChallengeSummary
			isHidden   bool
			extraFiles string
			extraLinks string
		)
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Category, &ch.Points, &ch.Solves, &ch.Wave,
			&ch.Author, &ch.HasHint, &ch.HintCost, &ch.MaxAttempts, &extraFiles, &extraLinks, &isHidden); err != nil {
			log.Printf("scan challenge error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
		if !contest.ChallengeVisible(isHidden, ch.Wave, waves) {
			continue
		}
		ch.Files = parseJSONList(extraFiles)
		ch.Links = parseJSONList(extraLinks)
		challenges = append(challenges, ch)
	}
	if err := rows.Err(); err != nil {
		log.Printf("list challenges error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	if err := decorateChallenges(db, userID, viewer.teamID, challenges); err != nil {
		log.Printf("decorate challenges error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	grouped := make(map[string][]ChallengeSummary)
	for _, ch := range challenges {
		grouped[ch.Category] = append(grouped[ch.Category], ch)
	}
	categories := make([]string, 0, len(grouped))
	for category := range grouped {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	c.JSON(http.StatusOK, gin.H{
		"challenges": grouped,
		"categories": categories,
		"total":      len(challenges),
	})
}

// decorateChallenges fills the viewer-specific fields in place.
func decorateChallenges(db *sql.DB, userID int64, teamID sql.NullInt64, challenges []ChallengeSummary) error {
	solvedByUser := make(map[int64]bool)
	solvedByTeam := make(map[int64]bool)
	rows, err := db.Query(`
		SELECT DISTINCT challenge_id, user_id = $1
		FROM submissions
		WHERE is_correct AND (user_id = $1 OR ($2::bigint IS NOT NULL AND team_id = $2))`,
		userID, teamID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var challengeID int64
		var own bool
		if err := rows.Scan(&challengeID, &own); err != nil {
			rows.Close()
			return err
		}
		solvedByTeam[challengeID] = true
		if own {
			solvedByUser[challengeID] = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	attempts := make(map[int64]int)
	rows, err = db.Query(`SELECT challenge_id, attempts FROM challenge_attempts WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var challengeID int64
		var used int
		if err := rows.Scan(&challengeID, &used); err != nil {
			rows.Close()
			return err
		}
		attempts[challengeID] = used
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	type ratingAgg struct {
		avg   float64
		count int
	}
	ratings := make(map[int64]ratingAgg)
	rows, err = db.Query(`SELECT challenge_id, AVG(rating), COUNT(*) FROM challenge_ratings GROUP BY challenge_id`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var challengeID int64
		var agg ratingAgg
		if err := rows.Scan(&challengeID, &agg.avg, &agg.count); err != nil {
			rows.Close()
			return err
		}
		ratings[challengeID] = agg
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range challenges {
		ch := &challenges[i]
		ch.Solved = solvedByUser[ch.ID]
		ch.SolvedByTeam = solvedByTeam[ch.ID] && !solvedByUser[ch.ID]
		ch.AttemptsUsed = attempts[ch.ID]
		if ch.MaxAttempts > 0 {
			remaining := ch.MaxAttempts - ch.AttemptsUsed
			if remaining < 0 {
				remaining = 0
			}
			ch.AttemptsRemaining = &remaining
		}
		if agg, ok := ratings[ch.ID]; ok {
			ch.Rating = agg.avg
			ch.RatingCount = agg.count
		}
	}
	return nil
}

// HandleGetChallenge returns one challenge with full description, solver
// list and the viewer's hint/rating state. The stored flag is revealed
// only when show_flag is set and the viewer has solved it.
func HandleGetChallenge(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	viewer, err := loadViewer(db, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if !checkCatalogAccess(c, db, viewer) {
		return
	}

	var (
		ch          ChallengeSummary
		description string
		flag        string
		showFlag    bool
		isHidden    bool
		hint        sql.NullString
		fileURL     sql.NullString
		linkURL     sql.NullString
		extraFiles  string
		extraLinks  string
	)
	ch.ID = challengeID
	err = db.QueryRow(`
		SELECT title, description, category, points, solves, wave, author, flag, show_flag,
			is_hidden, hint, hint_cost, max_attempts, file_url, link_url, extra_files, extra_links
		FROM challenges WHERE id = $1`, challengeID).Scan(
		&ch.Title, &description, &ch.Category, &ch.Points, &ch.Solves, &ch.Wave, &ch.Author,
		&flag, &showFlag, &isHidden, &hint, &ch.HintCost, &ch.MaxAttempts,
		&fileURL, &linkURL, &extraFiles, &extraLinks)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}
	if err != nil {
		log.Printf("get challenge error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	waves := contest.LoadWaveConfig(db)
	if !viewer.isAdmin && !contest.ChallengeVisible(isHidden, ch.Wave, waves) {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	ch.HasHint = hint.Valid && hint.String != ""
	ch.Files = parseJSONList(extraFiles)
	ch.Links = parseJSONList(extraLinks)
	summary := []ChallengeSummary{ch}
	if err := decorateChallenges(db, userID, viewer.teamID, summary); err != nil {
		log.Printf("decorate challenge error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	ch = summary[0]

	resp := gin.H{
		"challenge":   ch,
		"description": description,
	}
	if fileURL.Valid && fileURL.String != "" {
		resp["fileUrl"] = fileURL.String
	}
	if linkURL.Valid && linkURL.String != "" {
		resp["linkUrl"] = linkURL.String
	}

	var hintUnlocked bool
	db.QueryRow(`SELECT EXISTS (SELECT 1 FROM hint_unlocks WHERE user_id = $1 AND challenge_id = $2)`,
		userID, challengeID).Scan(&hintUnlocked)
	if ch.HasHint && hintUnlocked {
		resp["hint"] = hint.String
	}

	if showFlag && (ch.Solved || ch.SolvedByTeam) {
		resp["flag"] = flag
	}

	var userRating sql.NullInt64
	db.QueryRow(`SELECT rating FROM challenge_ratings WHERE user_id = $1 AND challenge_id = $2`,
		userID, challengeID).Scan(&userRating)
	if userRating.Valid {
		resp["userRating"] = userRating.Int64
	}

	solverRows, err := db.Query(`
		SELECT u.username, t.name, s.submitted_at
		FROM submissions s
		JOIN users u ON s.user_id = u.id
		LEFT JOIN teams t ON s.team_id = t.id
		WHERE s.challenge_id = $1 AND s.is_correct
		  AND NOT u.is_hidden AND NOT u.is_admin AND NOT u.is_banned
		ORDER BY s.submitted_at ASC
		LIMIT 10`, challengeID)
	if err == nil {
		solvers := make([]gin.H, 0)
		for solverRows.Next() {
			var (
				username string
				teamName sql.NullString
				solvedAt time.Time
			)
			if err := solverRows.Scan(&username, &teamName, &solvedAt); err == nil {
				solver := gin.H{"username": username, "solvedAt": solvedAt.Format(time.RFC3339)}
				if teamName.Valid {
					solver["teamName"] = teamName.String
				}
				solvers = append(solvers, solver)
			}
		}
		solverRows.Close()
		resp["solvers"] = solvers
	}

	c.JSON(http.StatusOK, resp)
}
