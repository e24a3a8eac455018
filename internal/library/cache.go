package library

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-trim/internal/logging"
)

const (
	// CacheKey names the cached saved-video query.
	CacheKey = "savedVideos"

	DefaultStaleTime = 5 * time.Minute
)

// Loader is the query the cache fronts.
type Loader interface {
	LoadAll(ctx context.Context) ([]SavedVideo, error)
}

// Cache holds the decoded library list for DefaultStaleTime. A failed refresh
// serves the stale list when there is one.
type Cache struct {
	loader Loader
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	videos    []SavedVideo
	fetchedAt time.Time
	valid     bool
}

func NewCache(loader Loader, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Cache{
		loader: loader,
		ttl:    DefaultStaleTime,
		logger: logger.With("cache_key", CacheKey),
		now:    time.Now,
	}
}

// Get returns the cached list if fresh, otherwise reloads it.
func (c *Cache) Get(ctx context.Context) ([]SavedVideo, error) {
	c.mu.RLock()
	if c.valid && c.now().Sub(c.fetchedAt) < c.ttl {
		videos := clone(c.videos)
		c.mu.RUnlock()
		return videos, nil
	}
	c.mu.RUnlock()

	return c.Refresh(ctx)
}

// Refresh reloads regardless of freshness.
func (c *Cache) Refresh(ctx context.Context) ([]SavedVideo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	videos, err := c.loader.LoadAll(ctx)
	if err != nil {
		c.logger.Warn("library load failed", "error", err)
		if c.valid {
			c.logger.Info("returning stale library cache")
			return clone(c.videos), nil
		}
		return nil, err
	}

	c.videos = videos
	c.fetchedAt = c.now()
	c.valid = true
	return clone(videos), nil
}

// Peek returns the cached list without loading. ok is false when nothing is cached.
func (c *Cache) Peek() ([]SavedVideo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return nil, false
	}
	return clone(c.videos), true
}

// Appended applies a successful save. With a cached list the new entry is appended
// under the id the store assigned, the last element of all; otherwise the full
// list from the store is cached. The fetch time is left alone so the next reload
// still happens on schedule.
func (c *Cache) Appended(v NewVideo, all []SavedVideo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid {
		c.videos = clone(all)
		c.fetchedAt = c.now()
		c.valid = true
		return
	}

	c.videos = append(c.videos, SavedVideo{
		ID:           nextID(c.videos, all),
		URI:          v.URI,
		Title:        v.Title,
		Description:  v.Description,
		Source:       v.Source,
		StartSeconds: v.StartSeconds,
		EndSeconds:   v.EndSeconds,
	})
}

// nextID prefers the id the store gave the new entry. Stored positions can skip
// malformed elements, so the cached length is only a fallback.
func nextID(cached, all []SavedVideo) int {
	if n := len(all); n > 0 {
		return all[n-1].ID
	}
	if n := len(cached); n > 0 {
		return cached[n-1].ID + 1
	}
	return 1
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.videos = nil
	c.valid = false
	c.mu.Unlock()
}

func clone(videos []SavedVideo) []SavedVideo {
	out := make([]SavedVideo, len(videos))
	copy(out, videos)
	return out
}
