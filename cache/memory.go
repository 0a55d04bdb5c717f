package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/typerace/models"
)

type memoryEntry struct {
	meta      models.RoomMeta
	expiresAt time.Time
}

// MemoryRoomCache is a single-process RoomCache used when no redis address
// is configured, and in tests.
type MemoryRoomCache struct {
	clock   clockwork.Clock
	entries map[string]memoryEntry
	mutex   sync.RWMutex
}

func NewMemoryRoomCache(clock clockwork.Clock) *MemoryRoomCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRoomCache{
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryRoomCache) SetMeta(ctx context.Context, meta *models.RoomMeta, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[meta.Code] = memoryEntry{
		meta:      *meta,
		expiresAt: c.clock.Now().Add(ttl),
	}
	return nil
}

func (c *MemoryRoomCache) GetMeta(ctx context.Context, code string) (*models.RoomMeta, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[code]
	if !ok {
		return nil, nil
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, code)
		return nil, nil
	}
	meta := entry.meta
	return &meta, nil
}

func (c *MemoryRoomCache) Exists(ctx context.Context, code string) (bool, error) {
	meta, err := c.GetMeta(ctx, code)
	return meta != nil, err
}

func (c *MemoryRoomCache) Delete(ctx context.Context, code string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, code)
	return nil
}
