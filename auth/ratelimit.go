package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/stephnangue/profilebridge/helper"
	"github.com/stephnangue/profilebridge/logger"
)

// RateLimiter throttles failed authentication attempts per presented token.
// Tokens are hashed before use as keys so the map never holds secrets.
type RateLimiter struct {
	limit rate.Limit
	burst int
	log   logger.Logger

	mu       sync.Mutex
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// staleAfter bounds how long an idle entry is kept before pruning.
const staleAfter = 10 * time.Minute

// NewRateLimiter allows maxAttempts failures per window for each distinct
// token value.
func NewRateLimiter(maxAttempts int, window time.Duration, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Every(window / time.Duration(maxAttempts)),
		burst:    maxAttempts,
		log:      log.WithSubsystem("rate-limiter"),
		limiters: make(map[string]*limiterEntry),
	}
}

// Limited reports whether the token has exhausted its failure budget.
func (r *RateLimiter) Limited(token string) bool {
	entry := r.entryFor(token)
	return entry.limiter.Tokens() < 1
}

// RecordFailure burns one unit of the token's failure budget.
func (r *RateLimiter) RecordFailure(token string) {
	entry := r.entryFor(token)
	entry.limiter.Allow()

	r.log.Warn("failed authentication attempt",
		logger.String("token_hash", helper.Get8BytesHash(token)),
	)
}

func (r *RateLimiter) entryFor(token string) *limiterEntry {
	key := helper.GetHash(token)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()

	entry, ok := r.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry
}

// prune drops idle entries. Called with the lock held.
func (r *RateLimiter) prune() {
	cutoff := time.Now().Add(-staleAfter)
	for key, entry := range r.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
		}
	}
}
