package submission

import (
	"database/sql"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// One rolling limiter per (user, challenge). Entries are pruned by a
// background scheduler once idle.

type limiterKey struct {
	userID      int64
	challengeID int64
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

var (
	limiterMu sync.Mutex
	limiters  = make(map[limiterKey]*limiterEntry)
)

// allowSubmission reports whether another attempt fits inside the rolling
// per-minute window. The limiter is created on first use and re-created
// when the configured rate changes.
func allowSubmission(userID, challengeID int64, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}

	limiterMu.Lock()
	defer limiterMu.Unlock()

	key := limiterKey{userID: userID, challengeID: challengeID}
	entry, ok := limiters[key]
	if !ok || entry.lim.Burst() != perMinute {
		entry = &limiterEntry{
			lim: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		}
		limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.lim.Allow()
}

// StartLimiterCleanup prunes limiters idle for more than five minutes.
func StartLimiterCleanup(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-5 * time.Minute)
			limiterMu.Lock()
			for key, entry := range limiters {
				if entry.lastSeen.Before(cutoff) {
					delete(limiters, key)
				}
			}
			limiterMu.Unlock()
		}
	}()
}
