package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dialadrink/backend/pkg/logger"
	"github.com/dialadrink/backend/pkg/redis"
)

const guardScope = "settlement"

// Guard keeps concurrent settlement attempts for the same order from piling
// up on the database. It is an optimization only; the advisory lock inside
// the transaction is the authoritative exclusion.
type Guard interface {
	Acquire(ctx context.Context, orderID uuid.UUID) (bool, error)
	Release(ctx context.Context, orderID uuid.UUID)
}

type redisGuard struct {
	store redis.LockStore
	ttl   time.Duration
	owner string
	logg  *logger.Logger
}

// NewRedisGuard builds a guard over SETNX keys. The TTL bounds how long a
// crashed process can hold an order hostage.
func NewRedisGuard(store redis.LockStore, ttl time.Duration, logg *logger.Logger) (Guard, error) {
	if store == nil {
		return nil, errors.New("settlement guard requires a lock store")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisGuard{
		store: store,
		ttl:   ttl,
		owner: uuid.NewString(),
		logg:  logg,
	}, nil
}

func (g *redisGuard) Acquire(ctx context.Context, orderID uuid.UUID) (bool, error) {
	key := g.store.LockKey(guardScope, orderID.String())
	return g.store.SetNX(ctx, key, g.owner, g.ttl)
}

// Release deletes the key only when this process still owns it, so an
// expired key re-acquired elsewhere is left alone. Failures are logged and
// swallowed; the TTL cleans up eventually.
func (g *redisGuard) Release(ctx context.Context, orderID uuid.UUID) {
	key := g.store.LockKey(guardScope, orderID.String())

	value, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) && g.logg != nil {
			g.logg.Error(ctx, "settlement guard release read failed", err)
		}
		return
	}
	if value != g.owner {
		return
	}
	if err := g.store.Del(ctx, key); err != nil && g.logg != nil {
		g.logg.Error(ctx, "settlement guard release failed", err)
	}
}
