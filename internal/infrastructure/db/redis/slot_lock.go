package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

const defaultLockTTL = 5 * time.Second

// SlotLocker guards check-then-write sections per provider slot.
// Key format: lock:slot:<provider_id>:<date>:<time>
type SlotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSlotLocker returns a SlotLocker whose locks expire after ttl.
func NewSlotLocker(client *redis.Client, ttl time.Duration) *SlotLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &SlotLocker{client: client, ttl: ttl}
}

// WithSlotLock runs fn while holding the lock for key. fn gets a context
// bounded by the lock TTL. A lock held elsewhere yields domain.ErrSlotBusy.
func (l *SlotLocker) WithSlotLock(ctx context.Context, key domain.SlotKey, fn func(ctx context.Context) error) error {
	lockKey := l.key(key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return domain.ErrSlotBusy
	}
	defer func() {
		_ = l.release(context.WithoutCancel(ctx), lockKey, token)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// unlockScript deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *SlotLocker) release(ctx context.Context, key, token string) error {
	if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}

func (l *SlotLocker) key(k domain.SlotKey) string {
	return "lock:slot:" + k.String()
}
