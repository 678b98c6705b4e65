package auth

import "errors"

// Authentication failures, mapped to HTTP statuses at the API boundary.
var (
	ErrInvalidToken = errors.New("invalid or missing API token")
	ErrRateLimited  = errors.New("too many failed attempts")
)

// Authenticator combines token validation with failure rate limiting.
type Authenticator struct {
	tokens  *TokenManager
	limiter *RateLimiter
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *TokenManager, limiter *RateLimiter) *Authenticator {
	return &Authenticator{tokens: tokens, limiter: limiter}
}

// Authenticate validates a presented token. The rate limit is checked first
// so a throttled caller learns nothing about token validity, and every
// rejection burns failure budget.
func (a *Authenticator) Authenticate(token string) error {
	if a.limiter.Limited(token) {
		return ErrRateLimited
	}
	if !a.tokens.Validate(token) {
		a.limiter.RecordFailure(token)
		return ErrInvalidToken
	}
	return nil
}
