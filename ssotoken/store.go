// Package ssotoken reads the SSO access token cache that `aws sso login`
// maintains. The store is read-only: token renewal is the user's job.
package ssotoken

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/stephnangue/profilebridge/fscache"
	"github.com/stephnangue/profilebridge/logger"
)

// ErrNotFound is returned when no valid (present and unexpired) token exists
// for a start URL. Expired tokens are treated as absent.
var ErrNotFound = errors.New("no valid SSO token")

// memoryTTL bounds the in-memory layer so an aggregation burst does one file
// lookup per start URL, not one per profile.
const memoryTTL = 30 * time.Second

// Token is a cached SSO bearer token. Read-only to callers.
type Token struct {
	StartURL    string
	Region      string
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token is unexpired at the given instant.
func (t *Token) Valid(now time.Time) bool {
	return t.ExpiresAt.After(now)
}

// tokenFile is the on-disk shape written by the AWS CLI. Files in the same
// directory that belong to OIDC client registrations lack these fields and
// are skipped.
type tokenFile struct {
	StartURL    string `json:"startUrl"`
	Region      string `json:"region"`
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}

// Store looks up cached SSO tokens by portal start URL.
type Store struct {
	cacheDir string
	files    *fscache.Cache[*Token]
	memory   *expirable.LRU[string, *Token]
	log      logger.Logger
	now      func() time.Time
}

// NewStore creates a Store over the given SSO cache directory
// (typically ~/.aws/sso/cache).
func NewStore(cacheDir string, log logger.Logger) *Store {
	s := &Store{
		cacheDir: cacheDir,
		memory:   expirable.NewLRU[string, *Token](32, nil, memoryTTL),
		log:      log.WithSubsystem("sso-token-store"),
		now:      time.Now,
	}
	s.files = fscache.New(loadTokenFile)
	return s
}

// Lookup returns the cached token for startUrl, or ErrNotFound when the
// token is absent or expired.
func (s *Store) Lookup(startURL string) (*Token, error) {
	now := s.now()

	if token, ok := s.memory.Get(startURL); ok {
		if token.Valid(now) {
			return token, nil
		}
		s.memory.Remove(startURL)
	}

	token, err := s.lookupFile(startURL)
	if err != nil {
		return nil, err
	}
	if !token.Valid(now) {
		s.log.Debug("cached SSO token is expired",
			logger.String("start_url", startURL),
			logger.Time("expires_at", token.ExpiresAt),
		)
		return nil, fmt.Errorf("%w for %s", ErrNotFound, startURL)
	}

	s.memory.Add(startURL, token)
	return token, nil
}

func (s *Store) lookupFile(startURL string) (*Token, error) {
	// Fast path: the CLI names cache files after the SHA-1 of the start URL.
	path := filepath.Join(s.cacheDir, CacheKey(startURL)+".json")
	token, err := s.files.Get(path)
	if err == nil && token.StartURL == startURL {
		return token, nil
	}
	if err != nil && !fscache.IsNotFound(err) {
		s.log.Debug("failed to read SSO token cache file",
			logger.String("path", path),
			logger.Err(err),
		)
	}

	// Slow path: session-based logins hash the session name instead, so scan
	// the directory for a file with a matching startUrl.
	return s.scan(startURL)
}

func (s *Store) scan(startURL string) (*Token, error) {
	matches, err := filepath.Glob(filepath.Join(s.cacheDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan SSO cache dir: %w", err)
	}

	for _, path := range matches {
		token, err := s.files.Get(path)
		if err != nil {
			continue
		}
		if token.StartURL == startURL {
			return token, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNotFound, startURL)
}

// CacheDir returns the directory the store reads tokens from.
func (s *Store) CacheDir() string {
	return s.cacheDir
}

// CacheKey computes the cache file stem for a start URL the same way the AWS
// CLI does: the hex SHA-1 of the URL.
func CacheKey(startURL string) string {
	sum := sha1.Sum([]byte(startURL))
	return hex.EncodeToString(sum[:])
}

func loadTokenFile(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", fscache.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file tokenFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if file.AccessToken == "" || file.StartURL == "" || file.ExpiresAt == "" {
		return nil, fmt.Errorf("%s is not an SSO token cache file", path)
	}

	expiresAt, err := time.Parse(time.RFC3339, file.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid expiresAt in %s: %w", path, err)
	}

	return &Token{
		StartURL:    file.StartURL,
		Region:      file.Region,
		AccessToken: file.AccessToken,
		ExpiresAt:   expiresAt.UTC(),
	}, nil
}
