package repository

import (
	"context"
	"sync/atomic"
	"time"

	"tripcart/internal/domain"
	"tripcart/internal/models"

	"github.com/rs/zerolog"
)

// recoveryInterval is how long the store stays on the fallback before the
// primary is probed again.
const recoveryInterval = time.Minute

// FailoverSessionStore uses primary (Redis) until it errors, then serves
// from fallback (memory) and retries the primary once per recoveryInterval.
type FailoverSessionStore struct {
	primary   domain.SessionStore
	fallback  domain.SessionStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverSessionStore(primary, fallback domain.SessionStore, logger *zerolog.Logger) *FailoverSessionStore {
	return &FailoverSessionStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// Degraded reports whether requests are currently served by the fallback.
func (r *FailoverSessionStore) Degraded() bool {
	return r.isDown.Load()
}

func (r *FailoverSessionStore) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary session store failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

// usePrimary decides whether the primary should be tried for this call.
func (r *FailoverSessionStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverSessionStore) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary session store recovered")
	}
}

func (r *FailoverSessionStore) GetSession(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	if r.usePrimary() {
		snap, err := r.primary.GetSession(ctx, id)
		if err == nil {
			r.recovered()
			return r.reconcile(ctx, id, snap)
		}
		r.markDown("get", err)
	}
	return r.fallback.GetSession(ctx, id)
}

// reconcile merges a copy saved to the fallback during an outage with the
// primary's snapshot. The newer copy wins and is written back to the primary;
// the fallback copy is dropped once the primary holds it.
func (r *FailoverSessionStore) reconcile(ctx context.Context, id string, primary *models.SessionSnapshot) (*models.SessionSnapshot, error) {
	local, err := r.fallback.GetSession(ctx, id)
	if err != nil || local == nil {
		return primary, nil
	}

	if primary != nil && local.UpdatedAt.Before(primary.UpdatedAt) {
		_ = r.fallback.DeleteSession(ctx, id)
		return primary, nil
	}

	// Копия из памяти новее: возвращаем её в Redis
	if err := r.primary.SaveSession(ctx, local); err != nil {
		r.markDown("writeback", err)
		return local, nil
	}
	_ = r.fallback.DeleteSession(ctx, id)
	r.logger.Info().Str("session_id", id).Msg("Session restored to primary store after outage")
	return local, nil
}

func (r *FailoverSessionStore) SaveSession(ctx context.Context, snap *models.SessionSnapshot) error {
	if r.usePrimary() {
		err := r.primary.SaveSession(ctx, snap)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown("save", err)
	}
	return r.fallback.SaveSession(ctx, snap)
}

func (r *FailoverSessionStore) DeleteSession(ctx context.Context, id string) error {
	// Копия сессии могла остаться в памяти с периода деградации
	_ = r.fallback.DeleteSession(ctx, id)

	if r.usePrimary() {
		err := r.primary.DeleteSession(ctx, id)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown("delete", err)
	}
	return nil
}

func (r *FailoverSessionStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown("rate_limit", err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
