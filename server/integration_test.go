package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// The integration tests run the real router against a disposable Postgres
// container. Without Docker they skip.

const testJWTSecret = "integration-test-secret"

type testEnv struct {
	db     *sql.DB
	router *gin.Engine
}

var (
	envOnce sync.Once
	env     *testEnv
	envErr  error
	nameSeq atomic.Int64
)

func getEnv(t *testing.T) *testEnv {
	t.Helper()
	envOnce.Do(func() {
		// testcontainers panics (rather than returning an error) when no
		// Docker host exists at all; turn that into envErr so the skip
		// below still fires.
		defer func() {
			if r := recover(); r != nil {
				envErr = fmt.Errorf("%v", r)
			}
		}()
		ctx := context.Background()
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("ctf"),
			tcpostgres.WithUsername("ctf"),
			tcpostgres.WithPassword("ctf"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			envErr = err
			return
		}
		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			envErr = err
			return
		}
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			envErr = err
			return
		}
		if err := db.Ping(); err != nil {
			envErr = err
			return
		}
		if err := ensureSchema(db); err != nil {
			envErr = err
			return
		}
		// Keep the limiter out of the way except where a test lowers it.
		if _, err := db.Exec(`UPDATE config SET value = '1000' WHERE key = 'max_flag_attempts_per_minute'`); err != nil {
			envErr = err
			return
		}

		gin.SetMode(gin.TestMode)
		r := gin.New()
		registerRoutes(r, db, []byte(testJWTSecret))
		env = &testEnv{db: db, router: r}
	})
	if envErr != nil {
		t.Skipf("postgres container unavailable: %v", envErr)
	}
	return env
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if len(rec.Body.Bytes()) > 0 {
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

// registerUser creates an account through the API and returns its id and token.
func registerUser(t *testing.T, e *testEnv) (int64, string, string) {
	t.Helper()
	name := fmt.Sprintf("player%d", nameSeq.Add(1))
	rec, body := doJSON(t, e.router, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": name,
		"email":    name + "@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	userMap, _ := body["user"].(map[string]any)
	id := int64(userMap["id"].(float64))
	return id, name, token
}

// adminToken promotes a fresh account and logs it into the console.
func adminToken(t *testing.T, e *testEnv) string {
	t.Helper()
	_, name, _ := registerUser(t, e)
	_, err := e.db.Exec(`UPDATE users SET is_admin = TRUE, is_hidden = TRUE WHERE username = $1`, name)
	require.NoError(t, err)
	rec, body := doJSON(t, e.router, http.MethodPost, "/api/auth/admin-login", "", gin.H{
		"login":    name,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return body["token"].(string)
}

func createChallenge(t *testing.T, e *testEnv, points, maxAttempts, wave int, flag string) int64 {
	t.Helper()
	var id int64
	err := e.db.QueryRow(`
		INSERT INTO challenges (title, description, category, points, flag, max_attempts, wave)
		VALUES ($1, 'test challenge', 'Misc', $2, $3, $4, $5) RETURNING id`,
		fmt.Sprintf("chal-%d", nameSeq.Add(1)), points, flag, maxAttempts, wave).Scan(&id)
	require.NoError(t, err)
	return id
}

func setConfig(t *testing.T, e *testEnv, key, value string) {
	t.Helper()
	_, err := e.db.Exec(`INSERT INTO config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	require.NoError(t, err)
}

func userScore(t *testing.T, e *testEnv, userID int64) int {
	t.Helper()
	var score int
	require.NoError(t, e.db.QueryRow(`SELECT score FROM users WHERE id = $1`, userID).Scan(&score))
	return score
}

func submitPath(challengeID int64) string {
	return fmt.Sprintf("/api/challenges/%d/submit", challengeID)
}

func TestSubmitFlagLifecycle(t *testing.T) {
	e := getEnv(t)
	userID, _, token := registerUser(t, e)
	chID := createChallenge(t, e, 100, 0, 0, "flag{lifecycle}")

	rec, body := doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "flag{wrong}"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["correct"])
	assert.Equal(t, 0, userScore(t, e, userID))

	// Surrounding whitespace is trimmed before comparison.
	rec, body = doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "  flag{lifecycle}\n"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["correct"])
	assert.Equal(t, float64(100), body["points"])
	assert.Equal(t, 100, userScore(t, e, userID))

	// Solving twice neither scores nor writes a second correct row.
	rec, body = doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "flag{lifecycle}"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_SOLVED", body["error"])
	assert.Equal(t, 100, userScore(t, e, userID))

	var correctRows, totalRows, solves int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FILTER (WHERE is_correct), COUNT(*) FROM submissions WHERE challenge_id = $1`,
		chID).Scan(&correctRows, &totalRows))
	require.NoError(t, e.db.QueryRow(`SELECT solves FROM challenges WHERE id = $1`, chID).Scan(&solves))
	assert.Equal(t, 1, correctRows)
	assert.Equal(t, 2, totalRows, "every graded submission lands in the ledger")
	assert.Equal(t, 1, solves)
}

func TestAttemptExhaustion(t *testing.T) {
	e := getEnv(t)
	userID, _, token := registerUser(t, e)
	chID := createChallenge(t, e, 100, 2, 0, "flag{attempts}")

	rec, body := doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "nope"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["attemptsRemaining"])

	rec, body = doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "still nope"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["attemptsRemaining"])

	// The right flag no longer helps, and the counter stays put.
	rec, body = doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "flag{attempts}"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "NO_ATTEMPTS_LEFT", body["error"])
	assert.Equal(t, float64(0), body["attemptsRemaining"])
	assert.Equal(t, 0, userScore(t, e, userID))

	var used int
	require.NoError(t, e.db.QueryRow(`SELECT attempts FROM challenge_attempts WHERE user_id = $1 AND challenge_id = $2`,
		userID, chID).Scan(&used))
	assert.Equal(t, 2, used, "rejected submissions must not increment the counter")
}

func TestTeamSolveShared(t *testing.T) {
	e := getEnv(t)
	aID, _, aToken := registerUser(t, e)
	bID, _, bToken := registerUser(t, e)
	chID := createChallenge(t, e, 150, 0, 0, "flag{team}")

	rec, body := doJSON(t, e.router, http.MethodPost, "/api/teams", aToken, gin.H{"name": fmt.Sprintf("squad%d", nameSeq.Add(1))})
	require.Equal(t, http.StatusCreated, rec.Code)
	invite := body["inviteCode"].(string)
	teamID := int64(body["id"].(float64))

	rec, _ = doJSON(t, e.router, http.MethodPost, "/api/teams/join", bToken, gin.H{"inviteCode": invite})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, e.router, http.MethodPost, submitPath(chID), aToken, gin.H{"flag": "flag{team}"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["correct"])

	var teamScore int
	require.NoError(t, e.db.QueryRow(`SELECT score FROM teams WHERE id = $1`, teamID).Scan(&teamScore))
	assert.Equal(t, 150, teamScore, "user and team totals move in the same transaction")
	assert.Equal(t, 150, userScore(t, e, aID))

	// A teammate's solve blocks the whole team.
	rec, body = doJSON(t, e.router, http.MethodPost, submitPath(chID), bToken, gin.H{"flag": "flag{team}"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_SOLVED", body["error"])
	assert.Equal(t, 0, userScore(t, e, bID))
}

func TestConcurrentSameUserSubmissions(t *testing.T) {
	e := getEnv(t)
	userID, _, token := registerUser(t, e)
	chID := createChallenge(t, e, 200, 0, 0, "flag{race}")

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "flag{race}"})
		}()
	}
	wg.Wait()

	var correctRows int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM submissions WHERE challenge_id = $1 AND is_correct`,
		chID).Scan(&correctRows))
	assert.Equal(t, 1, correctRows, "per-user serialization admits exactly one solve")
	assert.Equal(t, 200, userScore(t, e, userID))
}

func TestScoreboardFreeze(t *testing.T) {
	e := getEnv(t)
	userID, name, _ := registerUser(t, e)
	early := createChallenge(t, e, 30, 0, 0, "flag{early}")
	late := createChallenge(t, e, 70, 0, 0, "flag{late}")

	now := time.Now().UTC()
	freezeAt := now.Add(-time.Hour)
	for _, solve := range []struct {
		chID   int64
		points int
		at     time.Time
	}{
		{early, 30, now.Add(-2 * time.Hour)},
		{late, 70, now.Add(-30 * time.Minute)},
	} {
		_, err := e.db.Exec(`INSERT INTO submissions (user_id, challenge_id, flag_submitted, is_correct, submitted_at)
			VALUES ($1, $2, 'x', TRUE, $3)`, userID, solve.chID, solve.at)
		require.NoError(t, err)
		_, err = e.db.Exec(`UPDATE users SET score = score + $1 WHERE id = $2`, solve.points, userID)
		require.NoError(t, err)
	}

	setConfig(t, e, "score_freeze_time", freezeAt.Format(time.RFC3339))
	t.Cleanup(func() { setConfig(t, e, "score_freeze_time", "") })

	findEntry := func(body map[string]any) map[string]any {
		rowsAny, _ := body["scoreboard"].([]any)
		for _, rowAny := range rowsAny {
			row := rowAny.(map[string]any)
			if row["name"] == name {
				return row
			}
		}
		return nil
	}

	// Anonymous viewers get the board replayed as of the freeze.
	rec, body := doJSON(t, e.router, http.MethodGet, "/api/scoreboard?type=users&limit=100", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["frozen"])
	entry := findEntry(body)
	require.NotNil(t, entry)
	assert.Equal(t, float64(30), entry["score"], "post-freeze solve must not show")

	// Admins always see the live board.
	rec, body = doJSON(t, e.router, http.MethodGet, "/api/scoreboard?type=users&limit=100", adminToken(t, e), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["frozen"])
	entry = findEntry(body)
	require.NotNil(t, entry)
	assert.Equal(t, float64(100), entry["score"])
}

func TestScoreboardTieBreak(t *testing.T) {
	e := getEnv(t)
	firstID, firstName, _ := registerUser(t, e)
	secondID, secondName, _ := registerUser(t, e)
	chA := createChallenge(t, e, 500, 0, 0, "flag{tie-a}")
	chB := createChallenge(t, e, 500, 0, 0, "flag{tie-b}")

	now := time.Now().UTC()
	for _, solve := range []struct {
		userID int64
		chID   int64
		at     time.Time
	}{
		{firstID, chA, now.Add(-2 * time.Hour)},
		{secondID, chB, now.Add(-1 * time.Hour)},
	} {
		_, err := e.db.Exec(`INSERT INTO submissions (user_id, challenge_id, flag_submitted, is_correct, submitted_at)
			VALUES ($1, $2, 'x', TRUE, $3)`, solve.userID, solve.chID, solve.at)
		require.NoError(t, err)
		_, err = e.db.Exec(`UPDATE users SET score = score + 500 WHERE id = $1`, solve.userID)
		require.NoError(t, err)
	}

	rec, body := doJSON(t, e.router, http.MethodGet, "/api/scoreboard?type=users&limit=100", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rowsAny, _ := body["scoreboard"].([]any)
	posOf := func(name string) int {
		for i, rowAny := range rowsAny {
			if rowAny.(map[string]any)["name"] == name {
				return i
			}
		}
		return -1
	}
	firstPos, secondPos := posOf(firstName), posOf(secondName)
	require.GreaterOrEqual(t, firstPos, 0)
	require.GreaterOrEqual(t, secondPos, 0)
	assert.Less(t, firstPos, secondPos, "equal scores rank by earlier last solve")
}

func TestWaveGating(t *testing.T) {
	e := getEnv(t)
	_, _, token := registerUser(t, e)
	openCh := createChallenge(t, e, 100, 0, 1, "flag{wave-one}")
	gatedCh := createChallenge(t, e, 100, 0, 2, "flag{wave-two}")

	setConfig(t, e, "configured_waves", "[1,2]")
	setConfig(t, e, "active_waves", "[1]")
	t.Cleanup(func() {
		setConfig(t, e, "configured_waves", "[]")
		setConfig(t, e, "active_waves", "[]")
	})

	listed := func() map[int64]bool {
		rec, body := doJSON(t, e.router, http.MethodGet, "/api/challenges", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		ids := make(map[int64]bool)
		grouped, _ := body["challenges"].(map[string]any)
		for _, groupAny := range grouped {
			for _, chAny := range groupAny.([]any) {
				ids[int64(chAny.(map[string]any)["id"].(float64))] = true
			}
		}
		return ids
	}

	ids := listed()
	assert.True(t, ids[openCh])
	assert.False(t, ids[gatedCh], "inactive wave stays invisible")

	// Submitting against a gated challenge looks like a missing one.
	rec, body := doJSON(t, e.router, http.MethodPost, submitPath(gatedCh), token, gin.H{"flag": "flag{wave-two}"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CHALLENGE_NOT_FOUND", body["error"])

	rec, _ = doJSON(t, e.router, http.MethodPost, "/api/admin/waves/activate", adminToken(t, e), gin.H{"waves": []int{1, 2}})
	require.Equal(t, http.StatusOK, rec.Code)

	ids = listed()
	assert.True(t, ids[gatedCh], "activation releases the wave")
}

func TestHintUnlockIdempotent(t *testing.T) {
	e := getEnv(t)
	userID, _, token := registerUser(t, e)
	chID := createChallenge(t, e, 100, 0, 0, "flag{hints}")
	_, err := e.db.Exec(`UPDATE challenges SET hint = 'read the headers', hint_cost = 40 WHERE id = $1`, chID)
	require.NoError(t, err)
	_, err = e.db.Exec(`UPDATE users SET score = 100 WHERE id = $1`, userID)
	require.NoError(t, err)

	hintPath := fmt.Sprintf("/api/challenges/%d/hint", chID)

	rec, body := doJSON(t, e.router, http.MethodPost, hintPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "read the headers", body["hint"])
	assert.Equal(t, 60, userScore(t, e, userID))

	// Second unlock returns the hint without charging again.
	rec, body = doJSON(t, e.router, http.MethodPost, hintPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["alreadyUnlocked"])
	assert.Equal(t, 60, userScore(t, e, userID))

	poorID, _, poorToken := registerUser(t, e)
	_, err = e.db.Exec(`UPDATE users SET score = 10 WHERE id = $1`, poorID)
	require.NoError(t, err)
	rec, body = doJSON(t, e.router, http.MethodPost, hintPath, poorToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INSUFFICIENT_POINTS", body["error"])
	assert.Equal(t, 10, userScore(t, e, poorID))
}

func TestHintUnlockConcurrent(t *testing.T) {
	e := getEnv(t)
	userID, _, token := registerUser(t, e)
	chID := createChallenge(t, e, 100, 0, 0, "flag{hint-race}")
	_, err := e.db.Exec(`UPDATE challenges SET hint = 'try harder', hint_cost = 25 WHERE id = $1`, chID)
	require.NoError(t, err)
	_, err = e.db.Exec(`UPDATE users SET score = 100 WHERE id = $1`, userID)
	require.NoError(t, err)

	hintPath := fmt.Sprintf("/api/challenges/%d/hint", chID)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doJSON(t, e.router, http.MethodPost, hintPath, token, nil)
		}()
	}
	wg.Wait()

	// Racing unlocks charge exactly once.
	assert.Equal(t, 75, userScore(t, e, userID))
	var unlocks int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM hint_unlocks WHERE user_id = $1 AND challenge_id = $2`,
		userID, chID).Scan(&unlocks))
	assert.Equal(t, 1, unlocks)
}

func TestAdminChallengePatch(t *testing.T) {
	e := getEnv(t)
	chID := createChallenge(t, e, 100, 0, 0, "flag{patch-me}")
	admin := adminToken(t, e)
	patchPath := fmt.Sprintf("/api/admin/challenges/%d", chID)

	rec, _ := doJSON(t, e.router, http.MethodPut, patchPath, admin, gin.H{
		"title":  "renamed",
		"points": 250,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var title, flag string
	var points int
	require.NoError(t, e.db.QueryRow(`SELECT title, flag, points FROM challenges WHERE id = $1`,
		chID).Scan(&title, &flag, &points))
	assert.Equal(t, "renamed", title)
	assert.Equal(t, 250, points)
	assert.Equal(t, "flag{patch-me}", flag, "omitted fields stay untouched")

	rec, body := doJSON(t, e.router, http.MethodPut, patchPath, admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", body["error"])

	rec, body = doJSON(t, e.router, http.MethodPut, "/api/admin/challenges/999999", admin, gin.H{"points": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CHALLENGE_NOT_FOUND", body["error"])
}

func TestRatingRequiresOwnSolve(t *testing.T) {
	e := getEnv(t)
	_, _, token := registerUser(t, e)
	chID := createChallenge(t, e, 100, 0, 0, "flag{rate-me}")
	ratePath := fmt.Sprintf("/api/challenges/%d/rate", chID)

	rec, body := doJSON(t, e.router, http.MethodPost, ratePath, token, gin.H{"rating": 5})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_SOLVED", body["error"])

	rec, _ = doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "flag{rate-me}"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, e.router, http.MethodPost, ratePath, token, gin.H{"rating": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	// Re-rating replaces, it does not accumulate.
	rec, body = doJSON(t, e.router, http.MethodPost, ratePath, token, gin.H{"rating": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["average"])
	assert.Equal(t, float64(1), body["count"])
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	e := getEnv(t)
	_, _, token := registerUser(t, e)
	chID := createChallenge(t, e, 100, 0, 0, "flag{slow-down}")

	setConfig(t, e, "max_flag_attempts_per_minute", "3")
	t.Cleanup(func() { setConfig(t, e, "max_flag_attempts_per_minute", "1000") })

	for i := 0; i < 3; i++ {
		rec, _ := doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "wrong"})
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d inside the window", i+1)
	}
	rec, body := doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "wrong"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", body["error"])

	// Rejected submissions leave no trace in the ledger.
	var total int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM submissions WHERE challenge_id = $1`, chID).Scan(&total))
	assert.Equal(t, 3, total)
}

func TestCompetitionWindowClosed(t *testing.T) {
	e := getEnv(t)
	_, _, token := registerUser(t, e)
	chID := createChallenge(t, e, 100, 0, 0, "flag{closed}")

	setConfig(t, e, "ctf_start", time.Now().UTC().Add(time.Hour).Format(time.RFC3339))
	t.Cleanup(func() { setConfig(t, e, "ctf_start", "") })

	rec, body := doJSON(t, e.router, http.MethodPost, submitPath(chID), token, gin.H{"flag": "flag{closed}"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CTF_NOT_ACTIVE", body["error"])

	// Admins may grade submissions outside the window, without scoring.
	admin := adminToken(t, e)
	rec, body = doJSON(t, e.router, http.MethodPost, submitPath(chID), admin, gin.H{"flag": "flag{closed}"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["correct"])
}
