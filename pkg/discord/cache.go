package discord

import "sync"

// UserCache holds User instances shared across requests, keyed by ID.
type UserCache interface {
	Get(id Snowflake) (*User, bool)
	Put(u *User)
	Evict(id Snowflake)
}

// MemoryCache is a process-wide UserCache with no expiry.
type MemoryCache struct {
	users map[Snowflake]*User
	lock  sync.RWMutex
}

var _ UserCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{users: make(map[Snowflake]*User)}
}

func (c *MemoryCache) Get(id Snowflake) (*User, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	u, ok := c.users[id]
	return u, ok
}

func (c *MemoryCache) Put(u *User) {
	c.lock.Lock()
	c.users[u.ID] = u
	c.lock.Unlock()
}

func (c *MemoryCache) Evict(id Snowflake) {
	c.lock.Lock()
	delete(c.users, id)
	c.lock.Unlock()
}

func (c *MemoryCache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.users)
}
