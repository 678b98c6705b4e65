// Package fscache provides mtime-keyed memoization over file reads.
package fscache

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrNotFound is returned when the underlying file does not exist.
var ErrNotFound = errors.New("file not found")

// IsNotFound reports whether err is a missing-file condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// DefaultNegativeTTL bounds how long a missing file is remembered before the
// next Get stats the path again.
const DefaultNegativeTTL = 5 * time.Second

// LoaderFunc reads and parses the file at path into a value of type T.
// It is invoked only on cache misses.
type LoaderFunc[T any] func(path string) (T, error)

type entry[T any] struct {
	mtime time.Time
	size  int64
	value T
}

// Cache memoizes loader results per path, invalidated by mtime changes.
// Entries are replaced whole, never mutated, so concurrent readers always
// observe a consistent (mtime, value) pair.
type Cache[T any] struct {
	loader LoaderFunc[T]

	mu      sync.RWMutex
	entries map[string]*entry[T]

	// negative remembers missing paths for a short TTL to avoid stat storms
	negative *expirable.LRU[string, struct{}]
}

// New creates a Cache backed by the given loader.
func New[T any](loader LoaderFunc[T]) *Cache[T] {
	return NewWithTTL(loader, DefaultNegativeTTL)
}

// NewWithTTL creates a Cache with a custom negative-cache TTL.
func NewWithTTL[T any](loader LoaderFunc[T], negativeTTL time.Duration) *Cache[T] {
	return &Cache[T]{
		loader:   loader,
		entries:  make(map[string]*entry[T]),
		negative: expirable.NewLRU[string, struct{}](64, nil, negativeTTL),
	}
}

// Get returns the cached value for path if the file is unchanged since the
// last load, otherwise re-reads it through the loader. A missing file returns
// an error wrapping ErrNotFound.
func (c *Cache[T]) Get(path string) (T, error) {
	var zero T

	if _, missing := c.negative.Get(path); missing {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.negative.Add(path, struct{}{})
			c.remove(path)
			return zero, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return zero, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	c.mu.RLock()
	cached, ok := c.entries[path]
	c.mu.RUnlock()

	if ok && cached.mtime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.value, nil
	}

	value, err := c.loader(path)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	c.entries[path] = &entry[T]{
		mtime: info.ModTime(),
		size:  info.Size(),
		value: value,
	}
	c.mu.Unlock()

	return value, nil
}

// Invalidate drops the cached entry for path.
func (c *Cache[T]) Invalidate(path string) {
	c.remove(path)
	c.negative.Remove(path)
}

// Clear drops all cached entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[T])
	c.mu.Unlock()
	c.negative.Purge()
}

func (c *Cache[T]) remove(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}
