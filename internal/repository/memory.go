package repository

import (
	"context"
	"sync"
	"time"

	"tripcart/internal/models"
)

// MemorySessionStore is the in-process fallback for the session store.
// Expired entries are dropped lazily on read.
type MemorySessionStore struct {
	sessions   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
	now        func() time.Time
}

type sessionEntry struct {
	snap      *models.SessionSnapshot
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySessionStore) GetSession(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*sessionEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.sessions.CompareAndDelete(id, val)
		return nil, nil
	}
	return entry.snap, nil
}

func (r *MemorySessionStore) SaveSession(ctx context.Context, snap *models.SessionSnapshot) error {
	r.sessions.Store(snap.ID, &sessionEntry{
		snap:      snap,
		expiresAt: r.now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySessionStore) DeleteSession(ctx context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemorySessionStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(key, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
