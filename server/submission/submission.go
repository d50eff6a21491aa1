package submission

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"flagforge/server/audit"
	"flagforge/server/config"
	"flagforge/server/contest"
	"flagforge/server/metrics"
)

// SubmitFlagRequest is the submit payload.
type SubmitFlagRequest struct {
	Flag string `json:"flag" binding:"required"`
}

// SubmitFlagResponse is the submit result.
type SubmitFlagResponse struct {
	Correct           bool   `json:"correct"`
	Message           string `json:"message"`
	Points            int    `json:"points,omitempty"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
	ScoreFrozen       bool   `json:"scoreFrozen"`
}

type challengeRow struct {
	id          int64
	points      int
	flag        string
	maxAttempts int
	isHidden    bool
	wave        int
}

var (
	errAlreadySolved     = errors.New("already solved")
	errAttemptsExhausted = errors.New("attempts exhausted")
)

// HandleSubmitFlag validates a flag submission and records it.
func HandleSubmitFlag(c *gin.Context, db *sql.DB) {
	userID := c.GetInt64("userID")
	challengeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	var req SubmitFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "flag is required"})
		return
	}

	var (
		isAdmin    bool
		userBanned bool
		teamID     sql.NullInt64
		teamBanned bool
	)
	err = db.QueryRow(`
		SELECT u.is_admin, u.is_banned, u.team_id, COALESCE(t.is_banned, FALSE)
		FROM users u LEFT JOIN teams t ON u.team_id = t.id
		WHERE u.id = $1`, userID).Scan(&isAdmin, &userBanned, &teamID, &teamBanned)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
		return
	}
	if userBanned || teamBanned {
		c.JSON(http.StatusForbidden, gin.H{"error": "BANNED", "message": "account is banned"})
		return
	}

	// Rate limit per (user, challenge). Rejected submissions touch no state.
	perMinute := config.GetInt(db, "max_flag_attempts_per_minute", 10)
	if !allowSubmission(userID, challengeID, perMinute) {
		metrics.Submissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      "RATE_LIMITED",
			"message":    "too many attempts, slow down",
			"retryAfter": 60 / max(perMinute, 1),
		})
		return
	}

	now := time.Now()
	start, end := contest.LoadWindow(db)
	if !isAdmin && !contest.IsActive(now, start, end) {
		c.JSON(http.StatusForbidden, gin.H{"error": "CTF_NOT_ACTIVE", "message": "competition is not running"})
		return
	}

	var ch challengeRow
	ch.id = challengeID
	err = db.QueryRow(`SELECT points, flag, max_attempts, is_hidden, wave FROM challenges WHERE id = $1`,
		challengeID).Scan(&ch.points, &ch.flag, &ch.maxAttempts, &ch.isHidden, &ch.wave)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}
	if err != nil {
		log.Printf("query challenge error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	// Invisible challenges are indistinguishable from missing ones.
	waves := contest.LoadWaveConfig(db)
	if !isAdmin && !contest.ChallengeVisible(ch.isHidden, ch.wave, waves) {
		c.JSON(http.StatusNotFound, gin.H{"error": "CHALLENGE_NOT_FOUND"})
		return
	}

	submitted := strings.TrimSpace(req.Flag)
	clientIP := c.ClientIP()

	outcome, err := recordSubmission(db, userID, teamID, isAdmin, ch, submitted, clientIP)
	if isRetryableTxError(err) {
		outcome, err = recordSubmission(db, userID, teamID, isAdmin, ch, submitted, clientIP)
	}

	switch {
	case err == errAlreadySolved:
		metrics.Submissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "ALREADY_SOLVED", "message": "challenge already solved"})
		return
	case err == errAttemptsExhausted:
		metrics.Submissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "NO_ATTEMPTS_LEFT",
			"message":           "no attempts remaining",
			"attemptsRemaining": 0,
		})
		return
	case err != nil:
		log.Printf("record submission error: %v", err)
		audit.WriteLog(db, &userID, audit.ActionIntegrityFailure,
			"submission for challenge "+strconv.FormatInt(challengeID, 10)+" failed: "+err.Error(), clientIP)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
		return
	}

	freeze, hasFreeze := contest.LoadFreeze(db)
	resp := SubmitFlagResponse{
		Correct:     outcome.correct,
		ScoreFrozen: hasFreeze && contest.IsFrozen(now, freeze),
	}
	if ch.maxAttempts > 0 {
		remaining := ch.maxAttempts - outcome.attempts
		if remaining < 0 {
			remaining = 0
		}
		resp.AttemptsRemaining = &remaining
	}
	if outcome.correct {
		metrics.Submissions.WithLabelValues(metrics.OutcomeCorrect).Inc()
		metrics.Solves.Inc()
		resp.Points = ch.points
		resp.Message = "correct"
	} else {
		metrics.Submissions.WithLabelValues(metrics.OutcomeIncorrect).Inc()
		resp.Message = "incorrect flag"
	}

	c.JSON(http.StatusOK, resp)
}

type submitOutcome struct {
	correct  bool
	attempts int // used attempts after this submission, 0 when unlimited
}

// recordSubmission runs the solved/attempts checks, the ledger insert and
// the score mutations in one transaction. The submitter's users row is
// locked first so concurrent submissions by the same user serialize.
func recordSubmission(db *sql.DB, userID int64, teamID sql.NullInt64, isAdmin bool, ch challengeRow, submitted, clientIP string) (submitOutcome, error) {
	var out submitOutcome

	tx, err := db.Begin()
	if err != nil {
		return out, err
	}
	defer tx.Rollback()

	var lockedScore int
	if err := tx.QueryRow(`SELECT score FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedScore); err != nil {
		return out, err
	}

	var solved bool
	err = tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE challenge_id = $1 AND is_correct
			  AND (user_id = $2 OR ($3::bigint IS NOT NULL AND team_id = $3))
		)`, ch.id, userID, teamID).Scan(&solved)
	if err != nil {
		return out, err
	}
	if solved {
		return out, errAlreadySolved
	}

	if ch.maxAttempts > 0 {
		var used int
		err = tx.QueryRow(`SELECT attempts FROM challenge_attempts WHERE user_id = $1 AND challenge_id = $2 FOR UPDATE`,
			userID, ch.id).Scan(&used)
		if err != nil && err != sql.ErrNoRows {
			return out, err
		}
		if used >= ch.maxAttempts {
			return out, errAttemptsExhausted
		}
		// Counted on both outcomes.
		err = tx.QueryRow(`
			INSERT INTO challenge_attempts (user_id, challenge_id, attempts, last_attempt)
			VALUES ($1, $2, 1, NOW())
			ON CONFLICT (user_id, challenge_id)
			DO UPDATE SET attempts = challenge_attempts.attempts + 1, last_attempt = NOW()
			RETURNING attempts`, userID, ch.id).Scan(&out.attempts)
		if err != nil {
			return out, err
		}
	}

	// Exact match after trimming surrounding whitespace, case sensitive.
	out.correct = submitted == ch.flag

	_, err = tx.Exec(`
		INSERT INTO submissions (user_id, team_id, challenge_id, flag_submitted, is_correct, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, teamID, ch.id, submitted, out.correct, clientIP)
	if err != nil {
		return out, err
	}

	if out.correct && !isAdmin {
		if _, err := tx.Exec(`UPDATE users SET score = score + $1 WHERE id = $2`, ch.points, userID); err != nil {
			return out, err
		}
		if teamID.Valid {
			if _, err := tx.Exec(`UPDATE teams SET score = score + $1 WHERE id = $2`, ch.points, teamID.Int64); err != nil {
				return out, err
			}
		}
		if _, err := tx.Exec(`UPDATE challenges SET solves = solves + 1 WHERE id = $1`, ch.id); err != nil {
			return out, err
		}
	}

	return out, tx.Commit()
}

// isRetryableTxError matches Postgres serialization and deadlock failures,
// which are safe to retry once.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
