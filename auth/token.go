// Package auth guards the loopback API with a persisted bearer token and a
// failure rate limit.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/hashicorp/go-secure-stdlib/base62"

	"github.com/stephnangue/profilebridge/logger"
)

const (
	tokenPrefix      = "awspc"
	tokenRandomLen   = 43
	tokenChecksumLen = 6
)

var (
	tokenPattern = regexp.MustCompile(`^awspc_[A-Za-z0-9]{43}_[A-Za-z0-9]{6}$`)

	// legacyPattern accepts tokens issued before the prefixed format.
	legacyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{32,64}$`)
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// TokenManager owns the persisted API token.
type TokenManager struct {
	path string
	log  logger.Logger

	mu    sync.RWMutex
	token string
}

// tokenFile is the on-disk shape of the token config.
type tokenFile struct {
	APIToken string `json:"api_token"`
}

// NewTokenManager creates a TokenManager over the given config file path.
func NewTokenManager(path string, log logger.Logger) *TokenManager {
	return &TokenManager{
		path: path,
		log:  log.WithSubsystem("token-manager"),
	}
}

// GenerateToken produces a fresh token: awspc_<43 base62>_<6 base62 CRC32>.
func GenerateToken() (string, error) {
	random, err := base62.Random(tokenRandomLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return fmt.Sprintf("%s_%s_%s", tokenPrefix, random, checksum(random)), nil
}

// checksum encodes the CRC32 of the random part as 6 base62 characters,
// left-padded with the alphabet's zero.
func checksum(random string) string {
	crc := crc32.ChecksumIEEE([]byte(random))

	var out []byte
	for crc > 0 {
		out = append([]byte{base62Alphabet[crc%62]}, out...)
		crc /= 62
	}
	for len(out) < tokenChecksumLen {
		out = append([]byte{'0'}, out...)
	}
	return string(out)
}

// ValidFormat reports whether a token is structurally valid, including its
// checksum. Legacy unprefixed tokens are accepted for compatibility.
func ValidFormat(token string) bool {
	if token == "" {
		return false
	}

	if tokenPattern.MatchString(token) {
		parts := strings.Split(token, "_")
		return parts[2] == checksum(parts[1])
	}
	if strings.HasPrefix(token, tokenPrefix+"_") {
		return false
	}
	if strings.Count(token, "_") == 2 {
		return false
	}
	return legacyPattern.MatchString(token)
}

// LoadOrCreate loads the persisted token, generating and saving a new one
// when the file is absent or its content is unusable.
func (m *TokenManager) LoadOrCreate() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token, err := m.load(); err == nil {
		m.token = token
		m.log.Info("loaded API token",
			logger.String("path", m.path),
		)
		return token, nil
	} else if !os.IsNotExist(err) {
		m.log.Warn("stored API token is unusable, generating a new one",
			logger.Err(err),
		)
	}

	return m.rotateLocked()
}

// Rotate generates, persists and activates a new token.
func (m *TokenManager) Rotate() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotateLocked()
}

func (m *TokenManager) rotateLocked() (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	if err := m.save(token); err != nil {
		return "", err
	}
	m.token = token
	m.log.Info("generated new API token",
		logger.String("path", m.path),
	)
	return token, nil
}

// Validate checks a presented token against the active one. Format and
// checksum are verified first so garbage never reaches the comparison.
func (m *TokenManager) Validate(token string) bool {
	if !ValidFormat(token) {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) == 1
}

func (m *TokenManager) load() (string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return "", err
	}

	var file tokenFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", m.path, err)
	}
	if !ValidFormat(file.APIToken) {
		return "", fmt.Errorf("invalid token format in %s", m.path)
	}
	return file.APIToken, nil
}

func (m *TokenManager) save(token string) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}

	data, err := json.MarshalIndent(tokenFile{APIToken: token}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}
