package submission

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flagforge/server/metrics"
)

// HandleUnlockHint unlocks a challenge hint, deducting its cost from the
// user's own score. Unlocking twice returns the hint without charging.
func HandleUnlockHint(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	var (
		hint     sql.NullString
		hintCost int
		isHidden bool
	)
	err = db.QueryRow(`SELECT hint, hint_cost, is_hidden FROM challenges WHERE id = $1`,
		challengeID).Scan(&hint, &hintCost, &isHidden)
	if err == sql.ErrNoRows || isHidden {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}
	if err != nil {
		log.Printf("query challenge hint error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if !hint.Valid || hint.String == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "NO_HINT", "message": "challenge has no hint"})
		return
	}

	var alreadyUnlocked bool
	err = db.QueryRow(`SELECT EXISTS (SELECT 1 FROM hint_unlocks WHERE user_id = $1 AND challenge_id = $2)`,
		userID, challengeID).Scan(&alreadyUnlocked)
	if err != nil {
		log.Printf("query hint unlock error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if alreadyUnlocked {
		c.JSON(http.StatusOK, gin.H{"hint": hint.String, "cost": 0, "alreadyUnlocked": true})
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Printf("begin hint unlock tx error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	defer tx.Rollback()

	var score int
	if err := tx.QueryRow(`SELECT score FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&score); err != nil {
		log.Printf("lock user for hint unlock error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	// The insert decides: a concurrent unlock that committed while we
	// waited on the user lock leaves zero rows here, and must not charge
	// a second time.
	result, err := tx.Exec(`INSERT INTO hint_unlocks (user_id, challenge_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, challengeID)
	if err != nil {
		log.Printf("insert hint unlock error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if inserted, _ := result.RowsAffected(); inserted == 0 {
		c.JSON(http.StatusOK, gin.H{"hint": hint.String, "cost": 0, "alreadyUnlocked": true})
		return
	}

	if hintCost > 0 && score < hintCost {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INSUFFICIENT_POINTS", "message": "not enough points to unlock hint"})
		return
	}
	if hintCost > 0 {
		// Hint cost comes out of the user score only, never the team's.
		if _, err := tx.Exec(`UPDATE users SET score = score - $1 WHERE id = $2`, hintCost, userID); err != nil {
			log.Printf("deduct hint cost error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("commit hint unlock error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	metrics.HintUnlocks.Inc()
	c.JSON(http.StatusOK, gin.H{"hint": hint.String, "cost": hintCost, "alreadyUnlocked": false})
}

// RateChallengeRequest is the rating payload.
type RateChallengeRequest struct {
	Rating int `json:"rating" binding:"required,min=1,max=5"`
}

// HandleRateChallenge records a 1-5 rating. Only solvers may rate, and a
// second rating replaces the first.
func HandleRateChallenge(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	var req RateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "rating must be between 1 and 5"})
		return
	}

	// Rating requires the user's own solve, a teammate's is not enough.
	var solved bool
	err = db.QueryRow(`SELECT EXISTS (SELECT 1 FROM submissions WHERE user_id = $1 AND challenge_id = $2 AND is_correct)`,
		userID, challengeID).Scan(&solved)
	if err != nil {
		log.Printf("query own solve error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}
	if !solved {
		c.JSON(http.StatusForbidden, gin.H{"error": "NOT_SOLVED", "message": "solve the challenge before rating it"})
		return
	}

	_, err = db.Exec(`
		INSERT INTO challenge_ratings (user_id, challenge_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, challenge_id) DO UPDATE SET rating = EXCLUDED.rating`,
		userID, challengeID, req.Rating)
	if err != nil {
		log.Printf("upsert rating error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	var avg sql.NullFloat64
	var count int
	err = db.QueryRow(`SELECT AVG(rating), COUNT(*) FROM challenge_ratings WHERE challenge_id = $1`,
		challengeID).Scan(&avg, &count)
	if err != nil {
		log.Printf("query rating average error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rating": req.Rating, "average": avg.Float64, "count": count})
}
