package profiles

import (
	"context"
	"sync"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

type memoryEntry struct {
	snap    data.ProfileSnapshot
	expires time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, id string) (data.ProfileSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return data.ProfileSnapshot{}, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, id)
		return data.ProfileSnapshot{}, false, nil
	}
	return e.snap, true, nil
}

func (c *MemoryCache) Set(_ context.Context, id string, snap data.ProfileSnapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = memoryEntry{snap: snap, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}
