package federation

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const defaultCacheTTL = 12 * time.Hour

// URLCache caches console URLs per profile so repeated open-profile requests
// reuse the same federated session instead of logging out existing tabs.
// Entries live until the credentials that produced the URL expire.
type URLCache struct {
	cache *ristretto.Cache[string, *cachedURL]
	ttl   time.Duration
	now   func() time.Time
}

type cachedURL struct {
	url              string
	credentialExpiry *time.Time
}

// NewURLCache creates a URLCache.
func NewURLCache() (*URLCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *cachedURL]{
		NumCounters: 1 << 12,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize console URL cache: %w", err)
	}
	return &URLCache{
		cache: cache,
		ttl:   defaultCacheTTL,
		now:   time.Now,
	}, nil
}

// Get returns the cached URL for a profile. The entry is discarded when the
// caller's current credential expiry differs from the one the URL was built
// with, which means the credentials were rotated since.
func (c *URLCache) Get(profileName string, currentExpiry *time.Time) (string, bool) {
	entry, ok := c.cache.Get(profileName)
	if !ok {
		return "", false
	}

	if currentExpiry != nil && entry.credentialExpiry != nil &&
		!entry.credentialExpiry.Equal(*currentExpiry) {
		c.cache.Del(profileName)
		return "", false
	}
	if entry.credentialExpiry != nil && !entry.credentialExpiry.After(c.now()) {
		c.cache.Del(profileName)
		return "", false
	}

	return entry.url, true
}

// Set caches a URL for a profile. The entry's lifetime follows the credential
// expiry when known, the default TTL otherwise.
func (c *URLCache) Set(profileName, consoleURL string, credentialExpiry *time.Time) {
	ttl := c.ttl
	if credentialExpiry != nil {
		ttl = credentialExpiry.Sub(c.now())
		if ttl <= 0 {
			return
		}
	}

	c.cache.SetWithTTL(profileName, &cachedURL{
		url:              consoleURL,
		credentialExpiry: credentialExpiry,
	}, 1, ttl)
	c.cache.Wait()
}

// Invalidate drops the cached URL for a profile.
func (c *URLCache) Invalidate(profileName string) {
	c.cache.Del(profileName)
}

// Clear drops all cached URLs.
func (c *URLCache) Clear() {
	c.cache.Clear()
}

// Close releases the cache's resources.
func (c *URLCache) Close() {
	c.cache.Close()
}
