package authz

import (
	"sync"
	"time"

	"github.com/scolaris/scolaris/internal/catalog"
	"github.com/scolaris/scolaris/pkg/metrics"
)

// DefaultCacheTTL bounds how long a resolved effective set may be served
// without recomputation even when no invalidation arrives.
const DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	set       EffectiveSet
	role      catalog.Role
	expiresAt time.Time
}

// EffectiveCache keeps recently resolved effective sets in process. Entries
// are indexed by user and by role so a role-level mutation can evict every
// user holding that role in one broadcast, while override mutations evict a
// single user.
type EffectiveCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
	byRole  map[catalog.Role]map[string]struct{}
}

// CacheOption customises the EffectiveCache.
type CacheOption func(*EffectiveCache)

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *EffectiveCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the clock, primarily for testing.
func WithClock(now func() time.Time) CacheOption {
	return func(c *EffectiveCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewEffectiveCache constructs an empty cache.
func NewEffectiveCache(opts ...CacheOption) *EffectiveCache {
	c := &EffectiveCache{
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		byRole:  make(map[catalog.Role]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached effective set for the user when present and fresh.
// Expired entries are evicted on read so the role index does not accumulate
// dead rows between invalidations.
func (c *EffectiveCache) Get(userID string) (EffectiveSet, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()

	if ok && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[userID]; still && c.now().After(cur.expiresAt) {
			delete(c.entries, userID)
			c.dropFromRoleIndex(cur.role, userID)
		}
		c.mu.Unlock()
		ok = false
	}

	if !ok {
		metrics.EffectiveCacheEvents.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.EffectiveCacheEvents.WithLabelValues("hit").Inc()
	return entry.set, true
}

// Put stores a freshly resolved set, replacing any prior entry for the user.
func (c *EffectiveCache) Put(userID string, role catalog.Role, set EffectiveSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[userID]; ok && prev.role != role {
		c.dropFromRoleIndex(prev.role, userID)
	}

	c.entries[userID] = cacheEntry{
		set:       set,
		role:      role,
		expiresAt: c.now().Add(c.ttl),
	}

	users, ok := c.byRole[role]
	if !ok {
		users = make(map[string]struct{})
		c.byRole[role] = users
	}
	users[userID] = struct{}{}
}

// InvalidateUser evicts a single user after an override mutation.
func (c *EffectiveCache) InvalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return
	}

	delete(c.entries, userID)
	c.dropFromRoleIndex(entry.role, userID)
	metrics.EffectiveCacheEvents.WithLabelValues("invalidate_user").Inc()
}

// InvalidateRole evicts every cached user holding the role. Role-level
// mutations must call this: a point invalidation would leave stale sets for
// every other member of the role.
func (c *EffectiveCache) InvalidateRole(role catalog.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()

	users, ok := c.byRole[role]
	if !ok {
		return
	}

	for userID := range users {
		delete(c.entries, userID)
	}
	delete(c.byRole, role)
	metrics.EffectiveCacheEvents.WithLabelValues("invalidate_role").Inc()
}

// Len reports the number of cached users, fresh or not.
func (c *EffectiveCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *EffectiveCache) dropFromRoleIndex(role catalog.Role, userID string) {
	if users, ok := c.byRole[role]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(c.byRole, role)
		}
	}
}
