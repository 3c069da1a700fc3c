package settlement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialadrink/backend/pkg/redis"
)

type fakeLockStore struct {
	values map[string]string
	setErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (f *fakeLockStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeLockStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeLockStore) LockKey(scope, id string) string {
	return "dad:lock:" + scope + ":" + id
}

func TestRedisGuardAcquireIsExclusive(t *testing.T) {
	store := newFakeLockStore()
	guard, err := NewRedisGuard(store, time.Minute, nil)
	require.NoError(t, err)

	orderID := uuid.New()

	acquired, err := guard.Acquire(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = guard.Acquire(context.Background(), orderID)
	require.NoError(t, err)
	assert.False(t, acquired)

	// different orders do not contend
	acquired, err = guard.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestRedisGuardReleaseAllowsReacquire(t *testing.T) {
	store := newFakeLockStore()
	guard, err := NewRedisGuard(store, time.Minute, nil)
	require.NoError(t, err)

	orderID := uuid.New()

	acquired, err := guard.Acquire(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, acquired)

	guard.Release(context.Background(), orderID)

	acquired, err = guard.Acquire(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestRedisGuardReleaseLeavesForeignLockAlone(t *testing.T) {
	store := newFakeLockStore()
	guard, err := NewRedisGuard(store, time.Minute, nil)
	require.NoError(t, err)

	orderID := uuid.New()
	key := store.LockKey(guardScope, orderID.String())
	store.values[key] = "someone-else"

	guard.Release(context.Background(), orderID)

	assert.Equal(t, "someone-else", store.values[key])
}

func TestRedisGuardRequiresStore(t *testing.T) {
	_, err := NewRedisGuard(nil, time.Minute, nil)
	assert.Error(t, err)
}
